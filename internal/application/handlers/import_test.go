package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRelationshipHandler_HandleImport_CSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	_, err := f.relationships.HandleSet(ctx, game.ID, "mira", "vell", "respect", 0.9)
	require.NoError(t, err)

	path := writeSeed(t, "seed.csv", "from,to,trust,fear\n"+
		"mira,vell,0.8,\n"+
		"vell,mira,,1.5\n"+
		"mira,mira,0.5,\n"+
		",vell,0.5,\n")

	result, err := f.relationships.HandleImport(ctx, game.ID, path, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 3, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Message, "within [0, 1]")
	assert.Equal(t, 4, result.Errors[1].Line)
	assert.Equal(t, 5, result.Errors[2].Line)

	rel, err := f.relationships.HandleGet(ctx, game.ID, "mira", "vell")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, rel.Trust, 1e-9)
	assert.InDelta(t, 0.9, rel.Respect, 1e-9, "unset dimensions keep stored values")

	rels, err := f.relationships.HandleList(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, rels, 1)
}

func TestRelationshipHandler_HandleImport_DryRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	path := writeSeed(t, "seed.json", `[{"from": "mira", "to": "vell", "affection": 0.7}]`)

	result, err := f.relationships.HandleImport(ctx, game.ID, path, ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, result.Errors)

	rels, err := f.relationships.HandleList(ctx, game.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelationshipHandler_HandleImport_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	jsonSeed := writeSeed(t, "seed.json", `[]`)
	badJSON := writeSeed(t, "bad.json", `{"from": "mira"}`)
	yamlSeed := writeSeed(t, "seed.yaml", "- from: mira\n")

	tests := []struct {
		name   string
		gameID string
		path   string
		opts   ImportOptions
		want   error
	}{
		{name: "unsupported extension", gameID: game.ID, path: yamlSeed, want: entities.ErrInvalidInput},
		{name: "unsupported format", gameID: game.ID, path: jsonSeed, opts: ImportOptions{Format: "xml"}, want: entities.ErrInvalidInput},
		{name: "malformed file", gameID: game.ID, path: badJSON, want: entities.ErrInvalidInput},
		{name: "missing game", gameID: "missing", path: jsonSeed, want: entities.ErrGameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.relationships.HandleImport(ctx, tt.gameID, tt.path, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
