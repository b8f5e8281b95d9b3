package entities

import "time"

// EventType categorizes a canonical event.
type EventType string

// Built-in event types. Providers may return other types; they are stored as-is.
const (
	EventNarration       EventType = "narration"
	EventDialogue        EventType = "dialogue"
	EventAction          EventType = "action"
	EventSceneTransition EventType = "scene_transition"
	EventDMInjection     EventType = "dm_injection"
)

// CanonicalEvent is an accepted, immutable entry in a game's turn-ordered log.
type CanonicalEvent struct {
	ID      string    `json:"id"`
	GameID  string    `json:"game_id"`
	Turn    int       `json:"turn"`
	Type    EventType `json:"event_type"`
	Content string    `json:"content"`
	// OriginalGenerated holds the AI text when the DM edited it before accepting.
	OriginalGenerated string    `json:"original_generated,omitempty"`
	Speaker           string    `json:"speaker,omitempty"`
	LocationID        string    `json:"location_id,omitempty"`
	Witnesses         []string  `json:"witnesses"`
	Timestamp         time.Time `json:"timestamp"`
}

// WasEdited reports whether the DM changed the generated text before committing it.
func (e *CanonicalEvent) WasEdited() bool {
	return e.OriginalGenerated != ""
}
