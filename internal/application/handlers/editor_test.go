package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func TestEditorHandler_GenerateEditAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	outcome, err := f.editor.HandleGenerate(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, "The tide turns.", outcome.Content)
	assert.Nil(t, outcome.Failure)

	state, err := f.editor.HandleState(ctx, game.ID)
	require.NoError(t, err)
	require.True(t, state.HasPending())

	_, err = f.editor.HandleAction(ctx, game.ID, ActionInput{Type: "edit", Content: "The tide turns red."})
	require.NoError(t, err)

	result, err := f.editor.HandleAction(ctx, game.ID, ActionInput{Type: "Accept"})
	require.NoError(t, err)
	require.NotNil(t, result.Event)
	assert.Equal(t, "The tide turns red.", result.Event.Content)
	assert.Equal(t, "The tide turns.", result.Event.OriginalGenerated)
	assert.Equal(t, 1, result.Event.Turn)
	assert.True(t, result.Editor.IsIdle())
	assert.Nil(t, result.Next)
	assert.Equal(t, 1, f.provider.CallCount())
}

func TestEditorHandler_HandleAction_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	tests := []struct {
		name  string
		input ActionInput
		want  error
	}{
		{name: "accept without generation", input: ActionInput{Type: "ACCEPT"}, want: entities.ErrNoContentToAccept},
		{name: "edit without generation", input: ActionInput{Type: "EDIT", Content: "x"}, want: entities.ErrNoContentToEdit},
		{name: "empty inject", input: ActionInput{Type: "INJECT"}, want: entities.ErrEmptyContent},
		{name: "unknown action", input: ActionInput{Type: "REWIND"}, want: entities.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.editor.HandleAction(ctx, game.ID, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.editor.HandleAction(ctx, "missing", ActionInput{Type: "ACCEPT"})
	assert.ErrorIs(t, err, entities.ErrGameNotFound)
}

func TestEditorHandler_HandleAction_Inject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	result, err := f.editor.HandleAction(ctx, game.ID, ActionInput{
		Type:      "inject",
		Content:   "Stop right there!",
		EventType: " Dialogue ",
		Speaker:   "Guard",
		Witnesses: []string{"c1"},
	})

	require.NoError(t, err)
	assert.Equal(t, entities.EventDialogue, result.Event.Type)
	assert.Equal(t, "Guard", result.Event.Speaker)
	assert.Equal(t, []string{"c1"}, result.Event.Witnesses)
	assert.Equal(t, 0, f.provider.CallCount())
}

func TestEditorHandler_HandlePlayback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	result, err := f.editor.HandlePlayback(ctx, game.ID, PlaybackStep)
	require.NoError(t, err)
	assert.Equal(t, entities.PlaybackStepping, result.Mode)
	require.NotNil(t, result.Generation)
	assert.Equal(t, 1, f.provider.CallCount())

	// Content is pending, so another step does not generate.
	result, err = f.editor.HandlePlayback(ctx, game.ID, "STEP")
	require.NoError(t, err)
	assert.Nil(t, result.Generation)
	assert.Equal(t, 1, f.provider.CallCount())

	result, err = f.editor.HandlePlayback(ctx, game.ID, PlaybackPause)
	require.NoError(t, err)
	assert.Equal(t, entities.PlaybackPaused, result.Mode)

	shown, err := f.games.HandleShow(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlaybackPaused, shown.Game.PlaybackMode)
	assert.True(t, shown.Editor.HasPending(), "a mode change never discards pending content")

	_, err = f.editor.HandlePlayback(ctx, game.ID, "rewind")
	assert.ErrorIs(t, err, entities.ErrInvalidPlaybackMode)
}
