package services

import (
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// FilteredGameState is a role-specific projection of a FullGameState.
type FilteredGameState interface {
	View() entities.ViewKind
}

// DMView is the identity projection.
type DMView struct {
	entities.FullGameState
}

// View returns ViewDM.
func (DMView) View() entities.ViewKind { return entities.ViewDM }

// NarrationEntry is a committed event as shown to non-DM viewers.
type NarrationEntry struct {
	Turn      int                `json:"turn"`
	EventType entities.EventType `json:"event_type"`
	Content   string             `json:"content"`
	Speaker   string             `json:"speaker,omitempty"`
}

// Avatar identifies a party member on shared displays.
type Avatar struct {
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// PartyView is the shared table display. It never carries character data
// beyond names and avatars.
type PartyView struct {
	Narration []NarrationEntry `json:"narration"`
	Avatars   []Avatar         `json:"avatars"`
	Scene     *entities.Scene  `json:"scene"`
	Area      *entities.Area   `json:"area"`
}

// View returns ViewParty.
func (PartyView) View() entities.ViewKind { return entities.ViewParty }

// VisibleTrait is a trait as shown to a player.
type VisibleTrait struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PartyMemberTraits lists another party member's reputation traits.
type PartyMemberTraits struct {
	CharacterID string         `json:"character_id"`
	Name        string         `json:"name"`
	Traits      []VisibleTrait `json:"traits"`
}

// PlayerRelationshipView is how a character sees one of its own relationships.
// It has no fear, resentment or debt fields.
type PlayerRelationshipView struct {
	TargetID           string  `json:"target_id"`
	TargetName         string  `json:"target_name,omitempty"`
	PerceivedTrust     float64 `json:"perceived_trust"`
	PerceivedRespect   float64 `json:"perceived_respect"`
	PerceivedAffection float64 `json:"perceived_affection"`
	Label              Label   `json:"label"`
	Summary            string  `json:"summary"`
}

// PlayerView is one character's private screen.
type PlayerView struct {
	CharacterID   string                   `json:"character_id"`
	Name          string                   `json:"name"`
	AvatarURL     string                   `json:"avatar_url,omitempty"`
	Narration     []NarrationEntry         `json:"narration"`
	Scene         *entities.Scene          `json:"scene"`
	Area          *entities.Area           `json:"area"`
	OwnTraits     []VisibleTrait           `json:"own_traits"`
	PartyTraits   []PartyMemberTraits      `json:"party_traits"`
	Relationships []PlayerRelationshipView `json:"relationships"`
}

// View returns ViewPlayer.
func (PlayerView) View() entities.ViewKind { return entities.ViewPlayer }

// FilterGameStateForView projects a snapshot for one viewer. It never mutates
// the snapshot and returns equal output for equal input.
func FilterGameStateForView(state *entities.FullGameState, view entities.ViewKind, characterID string) (FilteredGameState, error) {
	switch view {
	case entities.ViewDM:
		return DMView{FullGameState: *state}, nil
	case entities.ViewParty:
		return partyView(state), nil
	case entities.ViewPlayer:
		if characterID == "" {
			return nil, entities.ErrCharacterRequired
		}
		return playerView(state, characterID)
	default:
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidView, view)
	}
}

func narration(events []entities.CanonicalEvent, visible func(*entities.CanonicalEvent) bool) []NarrationEntry {
	entries := make([]NarrationEntry, 0, len(events))
	for i := range events {
		if !visible(&events[i]) {
			continue
		}
		entries = append(entries, NarrationEntry{
			Turn:      events[i].Turn,
			EventType: events[i].Type,
			Content:   events[i].Content,
			Speaker:   events[i].Speaker,
		})
	}
	return entries
}

func copyScene(s *entities.Scene) *entities.Scene {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func copyArea(a *entities.Area) *entities.Area {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func partyView(state *entities.FullGameState) PartyView {
	avatars := make([]Avatar, 0)
	for _, c := range state.Characters {
		if c.InParty {
			avatars = append(avatars, Avatar{CharacterID: c.ID, Name: c.Name, AvatarURL: c.AvatarURL})
		}
	}
	return PartyView{
		Narration: narration(state.Events, public),
		Avatars:   avatars,
		Scene:     copyScene(state.Scene),
		Area:      copyArea(state.Area),
	}
}

// public reports whether an event is open to everyone at the table. The party
// display is shared, so restricted events never reach it.
func public(e *entities.CanonicalEvent) bool {
	return len(e.Witnesses) == 0
}

// witnessedBy reports whether a character saw an event. Events without
// witnesses are public.
func witnessedBy(characterID string) func(*entities.CanonicalEvent) bool {
	return func(e *entities.CanonicalEvent) bool {
		if len(e.Witnesses) == 0 {
			return true
		}
		for _, w := range e.Witnesses {
			if w == characterID {
				return true
			}
		}
		return false
	}
}

func playerView(state *entities.FullGameState, characterID string) (PlayerView, error) {
	var self *entities.Character
	names := make(map[string]string, len(state.Characters))
	for i := range state.Characters {
		names[state.Characters[i].ID] = state.Characters[i].Name
		if state.Characters[i].ID == characterID {
			self = &state.Characters[i]
		}
	}
	if self == nil {
		return PlayerView{}, fmt.Errorf("%w: %s", entities.ErrCharacterNotFound, characterID)
	}

	own := make([]VisibleTrait, 0)
	public := make(map[string][]VisibleTrait)
	for _, t := range state.Traits {
		if t.Status != entities.TraitActive {
			continue
		}
		vt := VisibleTrait{Name: t.Name, Description: t.Description}
		switch {
		case t.CharacterID == characterID:
			own = append(own, vt)
		case entities.IsPublicTrait(t.Name):
			public[t.CharacterID] = append(public[t.CharacterID], vt)
		}
	}

	partyTraits := make([]PartyMemberTraits, 0)
	for _, c := range state.Characters {
		if !c.InParty || c.ID == characterID || len(public[c.ID]) == 0 {
			continue
		}
		partyTraits = append(partyTraits, PartyMemberTraits{CharacterID: c.ID, Name: c.Name, Traits: public[c.ID]})
	}

	perceived := make(map[string]*entities.PerceivedRelationship)
	for i := range state.Perceptions {
		if state.Perceptions[i].PerceiverID == characterID {
			perceived[state.Perceptions[i].TargetID] = &state.Perceptions[i]
		}
	}

	rels := make([]PlayerRelationshipView, 0)
	for i := range state.Relationships {
		r := &state.Relationships[i]
		if r.FromID != characterID {
			continue
		}
		rels = append(rels, perceivedRelationship(r, perceived[r.ToID], names[r.ToID]))
	}

	return PlayerView{
		CharacterID:   self.ID,
		Name:          self.Name,
		AvatarURL:     self.AvatarURL,
		Narration:     narration(state.Events, witnessedBy(characterID)),
		Scene:         copyScene(state.Scene),
		Area:          copyArea(state.Area),
		OwnTraits:     own,
		PartyTraits:   partyTraits,
		Relationships: rels,
	}, nil
}

// perceivedRelationship applies the perception rule: a Known overlay value
// wins, otherwise the true value shows through. Hidden dimensions are not
// copied, and labels are computed as if they were absent.
func perceivedRelationship(r *entities.Relationship, p *entities.PerceivedRelationship, targetName string) PlayerRelationshipView {
	trust, respect, affection := r.Trust, r.Respect, r.Affection
	if p != nil {
		trust = p.PerceivedTrust.Or(trust)
		respect = p.PerceivedRespect.Or(respect)
		affection = p.PerceivedAffection.Or(affection)
	}
	labels := computeLabels(dims{
		trust:      trust,
		respect:    respect,
		affection:  affection,
		fear:       entities.DimFear.Default(),
		resentment: entities.DimResentment.Default(),
		debt:       entities.DimDebt.Default(),
	})
	return PlayerRelationshipView{
		TargetID:           r.ToID,
		TargetName:         targetName,
		PerceivedTrust:     trust,
		PerceivedRespect:   respect,
		PerceivedAffection: affection,
		Label:              labels.Primary,
		Summary:            labels.Summary,
	}
}
