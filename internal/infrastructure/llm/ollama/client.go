// Package ollama provides a NarrativeProvider backed by a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
	"github.com/ersonp/loremaster/internal/infrastructure/llm"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.1"
)

// Client implements ports.NarrativeProvider and ports.EvolutionAnalyzer
// using the Ollama chat API.
type Client struct {
	client      *api.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewClient creates a new Ollama client. An empty base URL targets the
// local default server.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	// api.NewClient wants the server root, not the OpenAI-compatible /v1 path.
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama base URL %q: %w", baseURL, err)
	}

	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client:      api.NewClient(parsed, http.DefaultClient),
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger.Named("ollama"),
	}, nil
}

// Execute asks the model for the next narrative event.
func (c *Client) Execute(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResponse, error) {
	start := time.Now()

	format := json.RawMessage(`"json"`)
	if len(req.OutputSchema) > 0 {
		format = json.RawMessage(req.OutputSchema)
	}

	content, err := c.chat(ctx, []api.Message{
		{Role: "system", Content: llm.SystemPrompt},
		{Role: "user", Content: req.Prompt},
	}, format, c.temperature)
	if err != nil {
		return nil, err
	}

	resp, err := llm.ParseNarrative(content, req.OutputSchema)
	if err != nil {
		c.logger.Warn("unparseable narrative", zap.String("game_id", req.GameID), zap.Error(err))
		return nil, err
	}
	resp.DurationMs = time.Since(start).Milliseconds()
	resp.Metadata = map[string]any{"model": c.model, "provider": "ollama"}
	return resp, nil
}

// ProposeChanges asks the model how an event changes the given relationships.
func (c *Client) ProposeChanges(ctx context.Context, event entities.CanonicalEvent, rels []entities.Relationship) ([]entities.RelationshipChange, error) {
	content, err := c.chat(ctx, []api.Message{
		{Role: "user", Content: llm.EvolutionPrompt(event, rels)},
	}, json.RawMessage(llm.ChangesSchema), 0.1)
	if err != nil {
		return nil, fmt.Errorf("analyzing event %s: %w", event.ID, err)
	}
	return llm.ParseChanges(content)
}

// chat runs a non-streaming chat request. Failures are *ports.ProviderError values.
func (c *Client) chat(ctx context.Context, messages []api.Message, format json.RawMessage, temperature float32) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Format:   format,
		Options: map[string]any{
			"temperature": temperature,
		},
	}

	var sb strings.Builder
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		sb.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		status := 0
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			status = statusErr.StatusCode
		}
		return "", llm.Failure(fmt.Errorf("calling Ollama: %w", err), status)
	}
	return sb.String(), nil
}
