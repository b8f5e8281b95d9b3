package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/domain/services"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"content": "x"}`,
			expected: `{"content": "x"}`,
		},
		{
			name:     "JSON with json code block",
			input:    "```json\n{\"content\": \"x\"}\n```",
			expected: `{"content": "x"}`,
		},
		{
			name:     "JSON with plain code block",
			input:    "```\n{\"content\": \"x\"}\n```",
			expected: `{"content": "x"}`,
		},
		{
			name:     "whitespace",
			input:    "  \n{\"content\": \"x\"}\n  ",
			expected: `{"content": "x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSON(tt.input))
		})
	}
}

func TestParseNarrative(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		schema   []byte
		want     *ports.GenerationResponse
		wantCode ports.ProviderErrorCode
	}{
		{
			name:   "conforming output",
			raw:    `{"content": "Mira draws her blade.", "eventType": "action", "speaker": "mira"}`,
			schema: services.NarrativeOutputSchema,
			want:   &ports.GenerationResponse{Content: "Mira draws her blade.", EventType: entities.EventAction, Speaker: "mira"},
		},
		{
			name:   "fenced output",
			raw:    "```json\n{\"content\": \"Rain.\", \"eventType\": \"narration\"}\n```",
			schema: services.NarrativeOutputSchema,
			want:   &ports.GenerationResponse{Content: "Rain.", EventType: entities.EventNarration},
		},
		{
			name:     "schema violation",
			raw:      `{"content": "Rain."}`,
			schema:   services.NarrativeOutputSchema,
			wantCode: ports.ProviderParseError,
		},
		{
			name:     "prose with schema",
			raw:      `The rain falls.`,
			schema:   services.NarrativeOutputSchema,
			wantCode: ports.ProviderParseError,
		},
		{
			name:     "empty",
			raw:      "   ",
			wantCode: ports.ProviderParseError,
		},
		{
			name: "prose without schema",
			raw:  `The rain falls.`,
			want: &ports.GenerationResponse{Content: "The rain falls.", EventType: entities.EventNarration},
		},
		{
			name: "json without schema",
			raw:  `{"content": "Hello.", "eventType": "dialogue", "speaker": "bren"}`,
			want: &ports.GenerationResponse{Content: "Hello.", EventType: entities.EventDialogue, Speaker: "bren"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNarrative(tt.raw, tt.schema)
			if tt.wantCode != "" {
				var perr *ports.ProviderError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.wantCode, perr.Code)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvolutionPrompt(t *testing.T) {
	rel := entities.NewRelationship("g1", "bren", "mira")
	event := entities.CanonicalEvent{Turn: 4, Type: entities.EventDialogue, Speaker: "bren", Content: "I owe you my life."}

	prompt := EvolutionPrompt(event, []entities.Relationship{rel})
	assert.Contains(t, prompt, "turn 4, dialogue by bren")
	assert.Contains(t, prompt, "I owe you my life.")
	assert.Contains(t, prompt, "bren -> mira: trust=0.50")

	assert.Contains(t, EvolutionPrompt(event, nil), "(none recorded)")
}

func TestParseChanges(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		changes, err := ParseChanges("```json\n" + `{"changes": [{"from_id": "bren", "to_id": "mira", "dimension": "debt", "delta": 0.2, "reason": "saved"}]}` + "\n```")
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, entities.DimDebt, changes[0].Dimension)
		assert.InDelta(t, 0.2, changes[0].Delta, 1e-9)
		assert.Equal(t, "saved", changes[0].Reason)
	})

	t.Run("empty", func(t *testing.T) {
		changes, err := ParseChanges(`{"changes": []}`)
		require.NoError(t, err)
		assert.Empty(t, changes)
	})

	t.Run("unknown dimension", func(t *testing.T) {
		_, err := ParseChanges(`{"changes": [{"from_id": "a", "to_id": "b", "dimension": "love", "delta": 0.1}]}`)
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseChanges(`nothing changes`)
		require.Error(t, err)
	})
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		want      ports.ProviderErrorCode
		retryable bool
	}{
		{name: "deadline", err: fmt.Errorf("calling: %w", context.DeadlineExceeded), want: ports.ProviderTimeout, retryable: true},
		{name: "rate limited", err: errors.New("slow down"), status: 429, want: ports.ProviderUnavailable, retryable: true},
		{name: "server error", err: errors.New("boom"), status: 503, want: ports.ProviderUnavailable, retryable: true},
		{name: "connection refused", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: ports.ProviderUnavailable, retryable: true},
		{name: "bad request", err: errors.New("bad model"), status: 400, want: ports.ProviderExecutionError, retryable: true},
		{name: "other", err: errors.New("odd"), want: ports.ProviderExecutionError, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Failure(tt.err, tt.status)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
		})
	}
}
