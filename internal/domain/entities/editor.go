package entities

import "time"

// EditorStatus is the phase of the per-game editorial cycle.
type EditorStatus string

// Editor statuses. Pending content always implies a non-idle status.
const (
	EditorIdle       EditorStatus = "idle"
	EditorGenerating EditorStatus = "generating"
	EditorEditing    EditorStatus = "editing"
	EditorAccepting  EditorStatus = "accepting"
)

// DMEditorState is the transient review state for one game.
type DMEditorState struct {
	GameID        string       `json:"game_id"`
	Status        EditorStatus `json:"status"`
	Pending       *string      `json:"pending"`
	EditedContent *string      `json:"edited_content"`
	// GenerationID identifies the in-flight or most recent generation.
	// Provider results carrying a different ID are stale and dropped.
	GenerationID     string    `json:"generation_id,omitempty"`
	PendingEventType EventType `json:"pending_event_type,omitempty"`
	PendingSpeaker   string    `json:"pending_speaker,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IdleEditorState returns the empty state for a game.
func IdleEditorState(gameID string) DMEditorState {
	return DMEditorState{GameID: gameID, Status: EditorIdle}
}

// HasPending reports whether AI content is awaiting DM disposition.
func (s *DMEditorState) HasPending() bool {
	return s.Pending != nil
}

// IsIdle reports whether a new generation may start.
func (s *DMEditorState) IsIdle() bool {
	return s.Status == EditorIdle && s.Pending == nil
}

// CommitContent resolves what ACCEPT would commit. Edited text wins, and the
// original AI text is returned so the commit can record it.
func (s *DMEditorState) CommitContent() (content, original string, ok bool) {
	if s.Pending == nil {
		return "", "", false
	}
	if s.EditedContent != nil {
		return *s.EditedContent, *s.Pending, true
	}
	return *s.Pending, "", true
}

// ActionType names a DM editorial action.
type ActionType string

// Editorial actions.
const (
	ActionAccept     ActionType = "ACCEPT"
	ActionEdit       ActionType = "EDIT"
	ActionRegenerate ActionType = "REGENERATE"
	ActionInject     ActionType = "INJECT"
)

// Action is a DM disposition of pending content, or a direct injection.
type Action struct {
	Type ActionType `json:"type"`
	// Content is the edited text for EDIT and the authored text for INJECT.
	Content string `json:"content,omitempty"`
	// Guidance steers a REGENERATE.
	Guidance string `json:"guidance,omitempty"`
	// EventType overrides the committed type for INJECT.
	EventType EventType `json:"event_type,omitempty"`
	Speaker   string    `json:"speaker,omitempty"`
	// SceneID moves the game to a new scene when an INJECT commits.
	SceneID   string   `json:"scene_id,omitempty"`
	Witnesses []string `json:"witnesses,omitempty"`
}

// Accept builds an ACCEPT action.
func Accept() Action { return Action{Type: ActionAccept} }

// Edit builds an EDIT action.
func Edit(content string) Action { return Action{Type: ActionEdit, Content: content} }

// Regenerate builds a REGENERATE action with optional guidance.
func Regenerate(guidance string) Action { return Action{Type: ActionRegenerate, Guidance: guidance} }

// Inject builds an INJECT action. An empty eventType commits as dm_injection.
func Inject(content string, eventType EventType) Action {
	return Action{Type: ActionInject, Content: content, EventType: eventType}
}
