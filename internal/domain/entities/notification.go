package entities

// NotificationKind tags a broadcast payload.
type NotificationKind string

// Notification kinds. The set is closed.
const (
	NotifyGenerationStarted  NotificationKind = "generation_started"
	NotifyGenerationComplete NotificationKind = "generation_complete"
	NotifyGenerationError    NotificationKind = "generation_error"
	NotifyStateChanged       NotificationKind = "state_changed"
	NotifyEditorState        NotificationKind = "editor_state"
)

// Notification is a state delta pushed to every viewer of a game.
// Only the fields belonging to Kind are set.
type Notification struct {
	Kind         NotificationKind `json:"type"`
	GameID       string           `json:"game_id"`
	GenerationID string           `json:"generation_id,omitempty"`
	Content      string           `json:"content,omitempty"`
	EventType    EventType        `json:"event_type,omitempty"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
	Error        string           `json:"error,omitempty"`
	Retryable    bool             `json:"retryable,omitempty"`
	State        *FullGameState   `json:"state,omitempty"`
	EditorState  *DMEditorState   `json:"editor_state,omitempty"`
}

// DMOnly reports whether the notification carries unreviewed or editorial
// data that only the DM may see.
func (n *Notification) DMOnly() bool {
	return n.Kind != NotifyStateChanged
}

// GenerationStarted announces a provider call.
func GenerationStarted(gameID, generationID string) Notification {
	return Notification{Kind: NotifyGenerationStarted, GameID: gameID, GenerationID: generationID}
}

// GenerationComplete carries pending content for review.
func GenerationComplete(gameID, generationID, content string, eventType EventType, metadata map[string]any) Notification {
	return Notification{
		Kind:         NotifyGenerationComplete,
		GameID:       gameID,
		GenerationID: generationID,
		Content:      content,
		EventType:    eventType,
		Metadata:     metadata,
	}
}

// GenerationError reports a provider failure.
func GenerationError(gameID, generationID, message string, retryable bool) Notification {
	return Notification{
		Kind:         NotifyGenerationError,
		GameID:       gameID,
		GenerationID: generationID,
		Error:        message,
		Retryable:    retryable,
	}
}

// StateChanged carries a full snapshot after a commit.
func StateChanged(state *FullGameState) Notification {
	return Notification{Kind: NotifyStateChanged, GameID: state.Game.ID, State: state}
}

// EditorStateChanged carries the editor state.
func EditorStateChanged(state DMEditorState) Notification {
	return Notification{Kind: NotifyEditorState, GameID: state.GameID, EditorState: &state}
}
