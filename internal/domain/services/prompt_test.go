package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/mocks"
)

func TestPromptBuilder_Assemble(t *testing.T) {
	store := mocks.NewStore()
	game := seedGame(t, store, entities.PlaybackPaused)
	ctx := context.Background()
	_, err := store.AppendEvent(ctx, &entities.CanonicalEvent{ID: "e1", GameID: "g1", Turn: 1, Type: entities.EventDialogue, Speaker: "Vex", Content: "The lighthouse is dark."})
	require.NoError(t, err)

	memory := &mocks.NarrativeMemory{Events: []entities.CanonicalEvent{
		{ID: "e0", GameID: "g1", Turn: 0, Type: entities.EventNarration, Content: "A lighthouse keeper vanished."},
		{ID: "e1", GameID: "g1", Turn: 1, Type: entities.EventDialogue, Content: "The lighthouse is dark."},
	}}

	req, err := NewPromptBuilder(store, memory, 5, 2, nil).Assemble(ctx, game, "reveal the smugglers")
	require.NoError(t, err)

	assert.Equal(t, "g1", req.GameID)
	assert.Equal(t, NarrativeOutputSchema, req.OutputSchema)
	assert.Contains(t, req.Prompt, "Location: Harbor / Docks")
	assert.Contains(t, req.Prompt, "Party: Bren")
	assert.Contains(t, req.Prompt, "[turn 1] (dialogue) Vex: The lighthouse is dark.")
	assert.Contains(t, req.Prompt, "guidance for this event: reveal the smugglers")
}

func TestPromptBuilder_RecallUsesLatestEventAndSkipsRecent(t *testing.T) {
	store := mocks.NewStore()
	game := seedGame(t, store, entities.PlaybackPaused)
	ctx := context.Background()
	_, err := store.AppendEvent(ctx, &entities.CanonicalEvent{ID: "e1", GameID: "g1", Turn: 1, Type: entities.EventNarration, Content: "lighthouse"})
	require.NoError(t, err)

	memory := &mocks.NarrativeMemory{Events: []entities.CanonicalEvent{
		{ID: "e1", GameID: "g1", Turn: 1, Content: "lighthouse"},
		{ID: "e0", GameID: "g1", Turn: 0, Content: "old lighthouse keeper"},
	}}

	req, err := NewPromptBuilder(store, memory, 5, 2, nil).Assemble(ctx, game, "")
	require.NoError(t, err)

	assert.Contains(t, req.Prompt, "Earlier events that may matter:\n[turn 0] () old lighthouse keeper")
}

func TestPromptBuilder_MemoryFailureIsNotFatal(t *testing.T) {
	store := mocks.NewStore()
	game := seedGame(t, store, entities.PlaybackPaused)

	memory := &mocks.NarrativeMemory{Err: errors.New("qdrant down")}

	req, err := NewPromptBuilder(store, memory, 5, 2, nil).Assemble(context.Background(), game, "storm")
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "Open the first scene")
	assert.NotContains(t, req.Prompt, "Earlier events")
}

func TestPromptBuilder_StoreFailure(t *testing.T) {
	store := mocks.NewStore()
	game := seedGame(t, store, entities.PlaybackPaused)
	store.Err = errors.New("locked")

	_, err := NewPromptBuilder(store, nil, 5, 2, nil).Assemble(context.Background(), game, "")
	assert.ErrorContains(t, err, "listing recent events")
}
