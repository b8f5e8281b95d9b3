package ports

import (
	"context"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// ProviderErrorCode classifies a provider failure.
type ProviderErrorCode string

// Provider failure codes.
const (
	ProviderTimeout        ProviderErrorCode = "TIMEOUT"
	ProviderExecutionError ProviderErrorCode = "EXECUTION_ERROR"
	ProviderParseError     ProviderErrorCode = "PARSE_ERROR"
	ProviderUnavailable    ProviderErrorCode = "UNAVAILABLE"
)

// ProviderError is the failure half of a provider result. The engine reports
// it to the DM and never retries on its own.
type ProviderError struct {
	Code      ProviderErrorCode `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewProviderError builds a ProviderError. Timeouts and unavailability are retryable.
func NewProviderError(code ProviderErrorCode, format string, args ...any) *ProviderError {
	return &ProviderError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: code != ProviderParseError,
	}
}

// GenerationRequest is the provider input.
type GenerationRequest struct {
	GameID string
	Prompt string
	// OutputSchema is an optional JSON schema the response must satisfy.
	OutputSchema []byte
}

// GenerationResponse is the provider output.
type GenerationResponse struct {
	Content    string
	EventType  entities.EventType
	Speaker    string
	DurationMs int64
	Metadata   map[string]any
}

// NarrativeProvider generates narrative content. Failures are returned as *ProviderError.
type NarrativeProvider interface {
	Execute(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

// ContextAssembler builds the provider request for the next generation.
type ContextAssembler interface {
	Assemble(ctx context.Context, game *entities.Game, guidance string) (GenerationRequest, error)
}

// EvolutionAnalyzer proposes relationship changes caused by an event.
type EvolutionAnalyzer interface {
	ProposeChanges(ctx context.Context, event entities.CanonicalEvent, rels []entities.Relationship) ([]entities.RelationshipChange, error)
}
