package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/mocks"
	"github.com/ersonp/loremaster/internal/domain/services"
)

// fixture wires every handler over one in-memory store.
type fixture struct {
	store         *mocks.Store
	provider      *mocks.Provider
	analyzer      *mocks.EvolutionAnalyzer
	games         *GameHandler
	editor        *EditorHandler
	relationships *RelationshipHandler
	proposals     *ProposalHandler
	worker        *services.EvolutionWorker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    mocks.NewStore(),
		provider: &mocks.Provider{Responses: []string{"The tide turns."}},
		analyzer: &mocks.EvolutionAnalyzer{},
	}
	state := services.NewStateService(f.store, 0)
	relService := services.NewRelationshipService(f.store, f.store)
	engine := services.NewEditorialEngine(services.EngineDeps{
		Store:     f.store,
		Provider:  f.provider,
		Assembler: services.NewPromptBuilder(f.store, nil, 5, 0, nil),
	}, nil)
	queue := services.NewEvolutionQueue(8, nil, nil)
	f.worker = services.NewEvolutionWorker(queue, nil, f.analyzer, relService, f.store, nil)

	f.games = NewGameHandler(f.store, state)
	f.editor = NewEditorHandler(engine, services.NewPlaybackController(engine))
	f.relationships = NewRelationshipHandler(relService, f.store)
	f.proposals = NewProposalHandler(f.worker)
	return f
}

func (f *fixture) createGame(t *testing.T) *entities.Game {
	t.Helper()
	game, err := f.games.HandleCreate(context.Background(), CreateGameInput{Name: "Saltmarsh", Area: "Coast", Scene: "Lighthouse"})
	require.NoError(t, err)
	return game
}
