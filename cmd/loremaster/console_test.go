package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/mocks"
	"github.com/ersonp/loremaster/internal/domain/services"
)

func TestParseConsoleLine(t *testing.T) {
	tests := []struct {
		line   string
		want   consoleCommand
		wantOK bool
	}{
		{line: "", wantOK: false},
		{line: "   ", wantOK: false},
		{line: "accept", want: consoleCommand{name: "accept"}, wantOK: true},
		{line: "  EDIT  The tide turns red. ", want: consoleCommand{name: "edit", arg: "The tide turns red."}, wantOK: true},
		{line: "regen darker", want: consoleCommand{name: "regen", arg: "darker"}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseConsoleLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestConsole(t *testing.T, out *bytes.Buffer) (*console, *mocks.Store) {
	t.Helper()
	store := mocks.NewStore()
	engine := services.NewEditorialEngine(services.EngineDeps{
		Store:     store,
		Provider:  &mocks.Provider{Responses: []string{"The tide turns."}},
		Assembler: services.NewPromptBuilder(store, nil, 5, 0, nil),
	}, nil)
	games := handlers.NewGameHandler(store, services.NewStateService(store, 0))
	game, err := games.HandleCreate(context.Background(), handlers.CreateGameInput{Name: "Saltmarsh"})
	require.NoError(t, err)

	return &console{
		gameID: game.ID,
		games:  games,
		editor: handlers.NewEditorHandler(engine, services.NewPlaybackController(engine)),
		out:    out,
	}, store
}

func TestConsole_EditorialCycle(t *testing.T) {
	var out bytes.Buffer
	c, store := newTestConsole(t, &out)
	ctx := context.Background()

	afterCalls := 0
	c.after = func(context.Context) { afterCalls++ }

	input := strings.Join([]string{
		"generate",
		"edit The tide turns red.",
		"accept",
		"say Vell: Hold the line.",
		"accept",
		"quit",
		"state",
	}, "\n")
	require.NoError(t, c.run(ctx, strings.NewReader(input)))

	events, err := store.ListEvents(ctx, c.gameID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "The tide turns red.", events[0].Content)
	assert.Equal(t, "Hold the line.", events[1].Content)
	assert.Equal(t, "Vell", events[1].Speaker)

	assert.Contains(t, out.String(), "Pending [narration]:")
	assert.Contains(t, out.String(), "Committed Turn 1 [narration] (edited):")
	assert.Contains(t, out.String(), "Error: ")
	assert.Equal(t, 5, afterCalls)
}

func TestConsole_Errors(t *testing.T) {
	var out bytes.Buffer
	c, _ := newTestConsole(t, &out)

	tests := []struct {
		name string
		cmd  consoleCommand
		want string
	}{
		{name: "unknown command", cmd: consoleCommand{name: "rewind"}, want: "unknown command"},
		{name: "say without speaker", cmd: consoleCommand{name: "say", arg: "hello"}, want: "usage: say"},
		{name: "bad view", cmd: consoleCommand{name: "view", arg: "audience"}, want: "view"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.exec(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.ErrorIs(t, c.exec(context.Background(), consoleCommand{name: "quit"}), errQuit)
}
