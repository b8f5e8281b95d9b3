package entities

// ViewKind names an observer role.
type ViewKind string

// Views.
const (
	ViewDM     ViewKind = "dm"
	ViewParty  ViewKind = "party"
	ViewPlayer ViewKind = "player"
)

// ParseView converts a string to a ViewKind.
func ParseView(s string) (ViewKind, error) {
	switch ViewKind(s) {
	case ViewDM, ViewParty, ViewPlayer:
		return ViewKind(s), nil
	default:
		return "", ErrInvalidView
	}
}

// FullGameState is an immutable snapshot of everything the DM can see.
type FullGameState struct {
	Game          Game                    `json:"game"`
	Events        []CanonicalEvent        `json:"events"`
	Characters    []Character             `json:"characters"`
	Traits        []Trait                 `json:"traits"`
	Relationships []Relationship          `json:"relationships"`
	Perceptions   []PerceivedRelationship `json:"perceptions"`
	Scene         *Scene                  `json:"scene"`
	Area          *Area                   `json:"area"`
	Editor        DMEditorState           `json:"editor"`
}
