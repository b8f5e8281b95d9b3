// Package llm holds the prompt and response handling shared by the
// narrative provider clients.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/llm/schema"
)

// ChangesSchema is the JSON schema relationship analysis must answer with.
var ChangesSchema = []byte(`{
  "type": "object",
  "required": ["changes"],
  "properties": {
    "changes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from_id", "to_id", "dimension", "delta"],
        "properties": {
          "from_id": {"type": "string", "minLength": 1},
          "to_id": {"type": "string", "minLength": 1},
          "dimension": {"type": "string", "enum": ["trust", "respect", "affection", "fear", "resentment", "debt"]},
          "delta": {"type": "number", "minimum": -1, "maximum": 1},
          "reason": {"type": "string"}
        }
      }
    }
  }
}`)

const evolutionPrompt = `You track how relationships between characters change in a tabletop role-playing game.

Given the event below and the current relationships, propose small changes (deltas between -0.3 and 0.3)
to the dimensions trust, respect, affection, fear, resentment or debt. Propose only changes the event clearly
causes. Use the exact character IDs shown.

Event (turn %d, %s): %s

Current relationships:
%s

Return ONLY a JSON object of the form {"changes": [{"from_id": "...", "to_id": "...", "dimension": "...", "delta": 0.1, "reason": "..."}]}.
Return {"changes": []} if nothing changes.`

// SystemPrompt frames every narrative request.
const SystemPrompt = `You are a narrative engine for a tabletop role-playing game. Answer with a single JSON object only.`

// CleanJSON removes markdown code blocks if present.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}

type narrativeOutput struct {
	Content   string `json:"content"`
	EventType string `json:"eventType"`
	Speaker   string `json:"speaker,omitempty"`
}

// ParseNarrative turns raw model output into a GenerationResponse. With a
// schema the output must be a conforming JSON object; without one, plain
// text is taken as narration. Failures are PARSE_ERROR provider errors.
func ParseNarrative(raw string, outputSchema []byte) (*ports.GenerationResponse, error) {
	content := CleanJSON(raw)
	if content == "" {
		return nil, ports.NewProviderError(ports.ProviderParseError, "empty response")
	}

	if len(outputSchema) == 0 {
		var out narrativeOutput
		if err := json.Unmarshal([]byte(content), &out); err != nil || out.Content == "" {
			return &ports.GenerationResponse{Content: content, EventType: entities.EventNarration}, nil
		}
		return out.response(), nil
	}

	validator, err := schema.NewValidator(outputSchema)
	if err != nil {
		return nil, ports.NewProviderError(ports.ProviderExecutionError, "output schema: %v", err)
	}
	if err := validator.Validate([]byte(content)); err != nil {
		return nil, ports.NewProviderError(ports.ProviderParseError, "%v", err)
	}

	var out narrativeOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, ports.NewProviderError(ports.ProviderParseError, "decoding output: %v", err)
	}
	return out.response(), nil
}

func (o narrativeOutput) response() *ports.GenerationResponse {
	eventType := entities.EventType(o.EventType)
	if eventType == "" {
		eventType = entities.EventNarration
	}
	return &ports.GenerationResponse{
		Content:   o.Content,
		EventType: eventType,
		Speaker:   o.Speaker,
	}
}

// EvolutionPrompt renders the relationship analysis prompt for an event.
func EvolutionPrompt(event entities.CanonicalEvent, rels []entities.Relationship) string {
	var sb strings.Builder
	if len(rels) == 0 {
		sb.WriteString("(none recorded)\n")
	}
	for i := range rels {
		r := &rels[i]
		fmt.Fprintf(&sb, "- %s -> %s: trust=%.2f respect=%.2f affection=%.2f fear=%.2f resentment=%.2f debt=%.2f\n",
			r.FromID, r.ToID, r.Trust, r.Respect, r.Affection, r.Fear, r.Resentment, r.Debt)
	}

	who := string(event.Type)
	if event.Speaker != "" {
		who += " by " + event.Speaker
	}
	return fmt.Sprintf(evolutionPrompt, event.Turn, who, event.Content, sb.String())
}

// ParseChanges decodes and validates a relationship analysis answer.
func ParseChanges(raw string) ([]entities.RelationshipChange, error) {
	content := CleanJSON(raw)

	validator, err := schema.NewValidator(ChangesSchema)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate([]byte(content)); err != nil {
		return nil, fmt.Errorf("parsing changes: %w (response: %s)", err, content)
	}

	var out struct {
		Changes []entities.RelationshipChange `json:"changes"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("decoding changes: %w", err)
	}
	return out.Changes, nil
}

// Failure maps a failed provider call to a provider error. status is the
// HTTP status code when the provider answered, else 0.
func Failure(err error, status int) *ports.ProviderError {
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.NewProviderError(ports.ProviderTimeout, "%v", err)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return ports.NewProviderError(ports.ProviderUnavailable, "%v", err)
	case status == 0 && errors.As(err, &opErr):
		return ports.NewProviderError(ports.ProviderUnavailable, "%v", err)
	default:
		return ports.NewProviderError(ports.ProviderExecutionError, "%v", err)
	}
}
