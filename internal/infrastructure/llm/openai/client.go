// Package openai provides NarrativeProvider and EvolutionAnalyzer
// implementations using OpenAI.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
	"github.com/ersonp/loremaster/internal/infrastructure/llm"
)

const defaultModel = "gpt-4o-mini"

// Client implements ports.NarrativeProvider and ports.EvolutionAnalyzer.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewClient creates a new OpenAI LLM client.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger.Named("openai"),
	}, nil
}

// Execute asks the model for the next narrative event.
func (c *Client) Execute(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResponse, error) {
	start := time.Now()

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: llm.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		Temperature: c.temperature,
	}
	if len(req.OutputSchema) > 0 {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	content, err := c.complete(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	resp, err := llm.ParseNarrative(content, req.OutputSchema)
	if err != nil {
		c.logger.Warn("unparseable narrative", zap.String("game_id", req.GameID), zap.Error(err))
		return nil, err
	}
	resp.DurationMs = time.Since(start).Milliseconds()
	resp.Metadata = map[string]any{"model": c.model, "provider": "openai"}

	c.logger.Debug("narrative generated",
		zap.String("game_id", req.GameID),
		zap.Int64("duration_ms", resp.DurationMs),
		zap.Int("length", len(resp.Content)),
	)
	return resp, nil
}

// ProposeChanges asks the model how an event changes the given relationships.
func (c *Client) ProposeChanges(ctx context.Context, event entities.CanonicalEvent, rels []entities.Relationship) ([]entities.RelationshipChange, error) {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: llm.EvolutionPrompt(event, rels),
			},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing event %s: %w", event.ID, err)
	}
	return llm.ParseChanges(content)
}

// complete runs a chat completion and returns the first choice's content.
// Failures are *ports.ProviderError values.
func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", llm.Failure(fmt.Errorf("calling OpenAI: %w", err), statusCode(err))
	}

	if len(resp.Choices) == 0 {
		return "", ports.NewProviderError(ports.ProviderParseError, "no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
