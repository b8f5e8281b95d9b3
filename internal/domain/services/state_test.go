package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/mocks"
)

func seedGame(t *testing.T, store *mocks.Store, mode entities.PlaybackMode) *entities.Game {
	t.Helper()
	ctx := context.Background()
	game := &entities.Game{ID: "g1", Name: "Saltmarsh", PlaybackMode: mode, CurrentSceneID: "s1", CurrentAreaID: "a1"}
	require.NoError(t, store.CreateGame(ctx, game))
	require.NoError(t, store.SaveScene(ctx, &entities.Scene{ID: "s1", GameID: "g1", AreaID: "a1", Name: "Docks"}))
	require.NoError(t, store.SaveArea(ctx, &entities.Area{ID: "a1", GameID: "g1", Name: "Harbor"}))
	require.NoError(t, store.SaveCharacter(ctx, &entities.Character{ID: "bren", GameID: "g1", Name: "Bren", InParty: true}))
	return game
}

func TestStateService_Snapshot(t *testing.T) {
	store := mocks.NewStore()
	seedGame(t, store, entities.PlaybackPaused)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := store.AppendEvent(ctx, &entities.CanonicalEvent{ID: string(rune('a' + i)), GameID: "g1", Turn: i})
		require.NoError(t, err)
	}

	state, err := NewStateService(store, 2).Snapshot(ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, "Saltmarsh", state.Game.Name)
	require.Len(t, state.Events, 2)
	assert.Equal(t, 2, state.Events[0].Turn)
	assert.Equal(t, 3, state.Events[1].Turn)
	require.NotNil(t, state.Scene)
	assert.Equal(t, "Docks", state.Scene.Name)
	require.NotNil(t, state.Area)
	assert.Equal(t, "Harbor", state.Area.Name)
	assert.Len(t, state.Characters, 1)
	assert.Equal(t, entities.EditorIdle, state.Editor.Status)
}

func TestStateService_SnapshotMissingGame(t *testing.T) {
	_, err := NewStateService(mocks.NewStore(), 0).Snapshot(context.Background(), "nope")
	assert.ErrorIs(t, err, entities.ErrGameNotFound)
}

func TestStateService_View(t *testing.T) {
	store := mocks.NewStore()
	seedGame(t, store, entities.PlaybackPaused)

	view, err := NewStateService(store, 0).View(context.Background(), "g1", entities.ViewParty, "")
	require.NoError(t, err)

	party, ok := view.(PartyView)
	require.True(t, ok)
	assert.Len(t, party.Avatars, 1)
}
