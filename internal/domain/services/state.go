package services

import (
	"context"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// StateService assembles immutable game snapshots.
type StateService struct {
	store ports.Store
	// eventLimit caps the events in a snapshot. Zero keeps all of them.
	eventLimit int
}

// NewStateService creates a new StateService.
func NewStateService(store ports.Store, eventLimit int) *StateService {
	return &StateService{store: store, eventLimit: eventLimit}
}

// Snapshot reads everything the DM can see about a game.
func (s *StateService) Snapshot(ctx context.Context, gameID string) (*entities.FullGameState, error) {
	game, err := s.store.FindGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("finding game: %w", err)
	}
	if game == nil {
		return nil, entities.ErrGameNotFound
	}

	state := &entities.FullGameState{Game: *game}
	if state.Events, err = s.store.ListEvents(ctx, gameID, s.eventLimit); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	if state.Characters, err = s.store.ListCharacters(ctx, gameID); err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	if state.Traits, err = s.store.ListTraits(ctx, gameID); err != nil {
		return nil, fmt.Errorf("listing traits: %w", err)
	}
	if state.Relationships, err = s.store.ListRelationships(ctx, gameID); err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	if state.Perceptions, err = s.store.ListPerceptions(ctx, gameID); err != nil {
		return nil, fmt.Errorf("listing perceptions: %w", err)
	}
	if game.CurrentSceneID != "" {
		if state.Scene, err = s.store.FindScene(ctx, game.CurrentSceneID); err != nil {
			return nil, fmt.Errorf("finding scene: %w", err)
		}
	}
	if game.CurrentAreaID != "" {
		if state.Area, err = s.store.FindArea(ctx, game.CurrentAreaID); err != nil {
			return nil, fmt.Errorf("finding area: %w", err)
		}
	}
	if state.Editor, err = s.store.GetEditorState(ctx, gameID); err != nil {
		return nil, fmt.Errorf("getting editor state: %w", err)
	}
	return state, nil
}

// View snapshots a game and projects it for one viewer.
func (s *StateService) View(ctx context.Context, gameID string, view entities.ViewKind, characterID string) (FilteredGameState, error) {
	state, err := s.Snapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return FilterGameStateForView(state, view, characterID)
}
