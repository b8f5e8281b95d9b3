package entities

import "strings"

// TraitStatus tracks whether a trait currently applies.
type TraitStatus string

// Trait statuses. Only active traits are shown to players.
const (
	TraitActive   TraitStatus = "active"
	TraitDormant  TraitStatus = "dormant"
	TraitRemoved  TraitStatus = "removed"
	TraitProposed TraitStatus = "proposed"
)

// PublicTraitNames are reputation traits other party members can see.
// Every other trait is private to its bearer and the DM.
var PublicTraitNames = []string{"feared", "beloved", "notorious", "mysterious", "disgraced", "legendary"}

// IsPublicTrait reports whether a trait name is a visible reputation trait.
func IsPublicTrait(name string) bool {
	n := NormalizeName(name)
	for _, pub := range PublicTraitNames {
		if n == pub {
			return true
		}
	}
	return false
}

// Character is a party member or NPC that can hold traits and relationships.
type Character struct {
	ID        string `json:"id"`
	GameID    string `json:"game_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	// InParty marks player characters shown on the party display.
	InParty bool `json:"in_party"`
	// Sheet holds raw character-sheet fields. DM-only.
	Sheet map[string]any `json:"sheet,omitempty"`
}

// Trait is a named characteristic attached to a character.
type Trait struct {
	ID          string      `json:"id"`
	GameID      string      `json:"game_id"`
	CharacterID string      `json:"character_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Status      TraitStatus `json:"status"`
	AcquiredAt  int         `json:"acquired_turn"`
}

// NormalizeName converts a name to lowercase for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
