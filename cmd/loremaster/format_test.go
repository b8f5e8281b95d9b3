package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/domain/services"
)

func TestPrintJSON_Perception(t *testing.T) {
	p := entities.PerceivedRelationship{
		PerceiverID:    "mira",
		TargetID:       "vell",
		PerceivedTrust: entities.Known(0.75),
	}

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, p))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, 0.75, parsed["perceived_trust"])
	assert.Nil(t, parsed["perceived_respect"])
	assert.Equal(t, "mira", parsed["perceiver_id"])
}

func TestPrintOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome *services.GenerationOutcome
		want    []string
	}{
		{
			name:    "pending content",
			outcome: &services.GenerationOutcome{Content: "Waves crash.", EventType: entities.EventNarration},
			want:    []string{"Pending [narration]:", "  Waves crash."},
		},
		{
			name: "failure",
			outcome: &services.GenerationOutcome{Failure: &ports.ProviderError{
				Code: ports.ProviderTimeout, Message: "took too long", Retryable: true,
			}},
			want: []string{"Generation failed [TIMEOUT]: took too long", "retryable"},
		},
		{
			name:    "superseded",
			outcome: &services.GenerationOutcome{Superseded: true},
			want:    []string{"superseded"},
		},
		{
			name:    "running",
			outcome: &services.GenerationOutcome{GenerationID: "gen-1", Running: true},
			want:    []string{"Generation gen-1 started."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printOutcome(&buf, tt.outcome)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestPrintOutcome_Nil(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestPrintSubmit_EditedEvent(t *testing.T) {
	pending := "draft"
	result := &services.SubmitResult{
		Event: &entities.CanonicalEvent{
			Turn:              3,
			Type:              entities.EventDialogue,
			Content:           "Hold the line.",
			Speaker:           "Vell",
			OriginalGenerated: "Hold.",
		},
		Editor: entities.DMEditorState{Status: entities.EditorEditing, Pending: &pending},
	}

	var buf bytes.Buffer
	printSubmit(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "Committed Turn 3 [dialogue] Vell (edited):")
	assert.Contains(t, out, "  Hold the line.")
	assert.Contains(t, out, "Editor: editing")
	assert.Contains(t, out, "    draft")
}

func TestPrintRelationships(t *testing.T) {
	var buf bytes.Buffer
	printRelationships(&buf, nil)
	assert.Equal(t, "No relationships found.\n", buf.String())

	buf.Reset()
	rel := entities.NewRelationship("g1", "mira", "vell")
	rel.Fear = -0.25
	printRelationships(&buf, []entities.Relationship{rel})
	assert.Contains(t, buf.String(), "mira -> vell")
	assert.Contains(t, buf.String(), "trust 0.50")
	assert.Contains(t, buf.String(), "fear -0.25")
}

func TestPrintProposals(t *testing.T) {
	var buf bytes.Buffer
	printProposals(&buf, []entities.EvolutionProposal{{
		ID:     "p1",
		Status: entities.ProposalPending,
		Turn:   4,
		Changes: []entities.RelationshipChange{
			{FromID: "mira", ToID: "vell", Dimension: entities.DimTrust, Delta: 0.1, Reason: "saved her"},
		},
	}})

	assert.Contains(t, buf.String(), "p1 [pending] turn 4")
	assert.Contains(t, buf.String(), "mira -> vell trust +0.10 (saved her)")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "short", n: 10, want: "short"},
		{in: "exactly-10", n: 10, want: "exactly-10"},
		{in: "a much longer name", n: 10, want: "a much ..."},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}

func TestPrintImport(t *testing.T) {
	result := &handlers.ImportResult{
		Imported: 2,
		Errors:   []handlers.ImportError{{Line: 4, Message: "from and to are required"}},
	}

	var buf bytes.Buffer
	printImport(&buf, result, false)
	assert.Equal(t, "  line 4: from and to are required\nImported 2 relationships, skipped 1\n", buf.String())

	buf.Reset()
	printImport(&buf, &handlers.ImportResult{Imported: 1}, true)
	assert.Equal(t, "Validated 1 relationships\n", buf.String())
}
