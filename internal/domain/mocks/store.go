// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// Store is an in-memory implementation of ports.Store.
type Store struct {
	mu sync.Mutex

	Games         map[string]*entities.Game
	Events        map[string][]entities.CanonicalEvent
	Editors       map[string]entities.DMEditorState
	Relationships map[string]*entities.Relationship
	Perceptions   map[string]*entities.PerceivedRelationship
	Characters    map[string]*entities.Character
	Traits        map[string]*entities.Trait
	Areas         map[string]*entities.Area
	Scenes        map[string]*entities.Scene
	Proposals     map[string]*entities.EvolutionProposal

	// Err, when set, is returned by every method.
	Err error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Games:         make(map[string]*entities.Game),
		Events:        make(map[string][]entities.CanonicalEvent),
		Editors:       make(map[string]entities.DMEditorState),
		Relationships: make(map[string]*entities.Relationship),
		Perceptions:   make(map[string]*entities.PerceivedRelationship),
		Characters:    make(map[string]*entities.Character),
		Traits:        make(map[string]*entities.Trait),
		Areas:         make(map[string]*entities.Area),
		Scenes:        make(map[string]*entities.Scene),
		Proposals:     make(map[string]*entities.EvolutionProposal),
	}
}

func pairKey(gameID, a, b string) string {
	return gameID + "|" + a + "|" + b
}

// EnsureSchema is a no-op.
func (m *Store) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *Store) Close() error {
	return nil
}

// Game methods.

// CreateGame stores a new game.
func (m *Store) CreateGame(_ context.Context, game *entities.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	g := *game
	m.Games[game.ID] = &g
	return nil
}

// FindGameByID returns a copy of the game or nil.
func (m *Store) FindGameByID(_ context.Context, id string) (*entities.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	g, ok := m.Games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

// ListGames lists games by name.
func (m *Store) ListGames(_ context.Context, limit int) ([]entities.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.Game, 0, len(m.Games))
	for _, g := range m.Games {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateGame replaces the stored game.
func (m *Store) UpdateGame(_ context.Context, game *entities.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Games[game.ID]; !ok {
		return entities.ErrGameNotFound
	}
	g := *game
	m.Games[game.ID] = &g
	return nil
}

// SetPlaybackMode changes the stored mode.
func (m *Store) SetPlaybackMode(_ context.Context, id string, mode entities.PlaybackMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	g, ok := m.Games[id]
	if !ok {
		return entities.ErrGameNotFound
	}
	g.PlaybackMode = mode
	return nil
}

// Event methods.

// AppendEvent advances the game's turn and appends the event at it.
func (m *Store) AppendEvent(_ context.Context, event *entities.CanonicalEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	g, ok := m.Games[event.GameID]
	if !ok {
		return 0, entities.ErrGameNotFound
	}
	g.Turn++
	event.Turn = g.Turn
	m.Events[event.GameID] = append(m.Events[event.GameID], *event)
	return g.Turn, nil
}

// ListEvents returns the last limit events in turn order.
func (m *Store) ListEvents(_ context.Context, gameID string, limit int) ([]entities.CanonicalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	events := m.Events[gameID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]entities.CanonicalEvent(nil), events...), nil
}

// Editor state methods.

// GetEditorState returns the stored state or idle.
func (m *Store) GetEditorState(_ context.Context, gameID string) (entities.DMEditorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entities.DMEditorState{}, m.Err
	}
	if s, ok := m.Editors[gameID]; ok {
		return s, nil
	}
	return entities.IdleEditorState(gameID), nil
}

// SetEditorState replaces the stored state.
func (m *Store) SetEditorState(_ context.Context, state entities.DMEditorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Editors[state.GameID] = state
	return nil
}

// ClearEditorState removes the stored state.
func (m *Store) ClearEditorState(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Editors, gameID)
	return nil
}

// Relationship methods.

// UpsertRelationship validates and stores a relationship.
func (m *Store) UpsertRelationship(_ context.Context, rel *entities.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if err := rel.Validate(); err != nil {
		return err
	}
	r := *rel
	m.Relationships[pairKey(rel.GameID, rel.FromID, rel.ToID)] = &r
	return nil
}

// FindRelationship returns a copy of the relationship or nil.
func (m *Store) FindRelationship(_ context.Context, gameID, fromID, toID string) (*entities.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	r, ok := m.Relationships[pairKey(gameID, fromID, toID)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// ListRelationships lists a game's relationships ordered by (from, to).
func (m *Store) ListRelationships(_ context.Context, gameID string) ([]entities.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.relationshipsWhere(gameID, func(*entities.Relationship) bool { return true }), nil
}

func (m *Store) relationshipsWhere(gameID string, keep func(*entities.Relationship) bool) []entities.Relationship {
	var result []entities.Relationship
	for _, r := range m.Relationships {
		if r.GameID == gameID && keep(r) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FromID != result[j].FromID {
			return result[i].FromID < result[j].FromID
		}
		return result[i].ToID < result[j].ToID
	})
	return result
}

// UpdateDimension sets one dimension, creating the record if needed.
func (m *Store) UpdateDimension(_ context.Context, gameID, fromID, toID string, dim entities.Dimension, value float64, turn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	key := pairKey(gameID, fromID, toID)
	r, ok := m.Relationships[key]
	if !ok {
		fresh := entities.NewRelationship(gameID, fromID, toID)
		fresh.ID = key
		r = &fresh
	}
	if err := r.Set(dim, value); err != nil {
		return err
	}
	r.UpdatedTurn = turn
	r.UpdatedAt = time.Now()
	m.Relationships[key] = r
	return nil
}

// FindByThreshold filters relationships by one dimension.
func (m *Store) FindByThreshold(_ context.Context, gameID string, dim entities.Dimension, op entities.Operator, value float64) ([]entities.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.relationshipsWhere(gameID, func(r *entities.Relationship) bool {
		return op.Compare(r.Get(dim), value)
	}), nil
}

// DeleteRelationshipsByEntity removes relationships touching an entity.
func (m *Store) DeleteRelationshipsByEntity(_ context.Context, gameID, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for k, r := range m.Relationships {
		if r.GameID == gameID && (r.FromID == entityID || r.ToID == entityID) {
			delete(m.Relationships, k)
		}
	}
	return nil
}

// Perception methods.

// UpsertPerception stores an overlay.
func (m *Store) UpsertPerception(_ context.Context, p *entities.PerceivedRelationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *p
	m.Perceptions[pairKey(p.GameID, p.PerceiverID, p.TargetID)] = &cp
	return nil
}

// FindPerception returns a copy of the overlay or nil.
func (m *Store) FindPerception(_ context.Context, gameID, perceiverID, targetID string) (*entities.PerceivedRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Perceptions[pairKey(gameID, perceiverID, targetID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ListPerceptions lists a game's overlays.
func (m *Store) ListPerceptions(_ context.Context, gameID string) ([]entities.PerceivedRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.PerceivedRelationship
	for _, p := range m.Perceptions {
		if p.GameID == gameID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PerceiverID != result[j].PerceiverID {
			return result[i].PerceiverID < result[j].PerceiverID
		}
		return result[i].TargetID < result[j].TargetID
	})
	return result, nil
}

// Character methods.

// SaveCharacter stores a character.
func (m *Store) SaveCharacter(_ context.Context, c *entities.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *c
	m.Characters[c.ID] = &cp
	return nil
}

// ListCharacters lists a game's characters by name.
func (m *Store) ListCharacters(_ context.Context, gameID string) ([]entities.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Character
	for _, c := range m.Characters {
		if c.GameID == gameID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// FindCharacterByName finds a character case-insensitively.
func (m *Store) FindCharacterByName(_ context.Context, gameID, name string) (*entities.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.Characters {
		if c.GameID == gameID && strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// SaveTrait stores a trait.
func (m *Store) SaveTrait(_ context.Context, t *entities.Trait) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *t
	m.Traits[t.ID] = &cp
	return nil
}

// ListTraits lists a game's traits by character then name.
func (m *Store) ListTraits(_ context.Context, gameID string) ([]entities.Trait, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Trait
	for _, t := range m.Traits {
		if t.GameID == gameID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CharacterID != result[j].CharacterID {
			return result[i].CharacterID < result[j].CharacterID
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Location methods.

// SaveArea stores an area.
func (m *Store) SaveArea(_ context.Context, a *entities.Area) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *a
	m.Areas[a.ID] = &cp
	return nil
}

// FindArea returns the area or nil.
func (m *Store) FindArea(_ context.Context, id string) (*entities.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.Areas[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// SaveScene stores a scene.
func (m *Store) SaveScene(_ context.Context, s *entities.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *s
	m.Scenes[s.ID] = &cp
	return nil
}

// FindScene returns the scene or nil.
func (m *Store) FindScene(_ context.Context, id string) (*entities.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Scenes[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Proposal methods.

// SaveProposal stores a proposal.
func (m *Store) SaveProposal(_ context.Context, p *entities.EvolutionProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *p
	cp.Changes = append([]entities.RelationshipChange(nil), p.Changes...)
	m.Proposals[p.ID] = &cp
	return nil
}

// FindProposal returns the proposal or nil.
func (m *Store) FindProposal(_ context.Context, id string) (*entities.EvolutionProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Proposals[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Changes = append([]entities.RelationshipChange(nil), p.Changes...)
	return &cp, nil
}

// ListProposals lists a game's proposals oldest first.
func (m *Store) ListProposals(_ context.Context, gameID string, status entities.ProposalStatus) ([]entities.EvolutionProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.EvolutionProposal
	for _, p := range m.Proposals {
		if p.GameID == gameID && (status == "" || p.Status == status) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}
