package ports

import (
	"context"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// NarrativeMemory indexes committed events for semantic recall when
// assembling prompts.
type NarrativeMemory interface {
	// Remember indexes a committed event.
	Remember(ctx context.Context, event entities.CanonicalEvent) error

	// Recall returns events of a game semantically close to the query.
	Recall(ctx context.Context, gameID, query string, limit int) ([]entities.CanonicalEvent, error)
}

// Embedder turns text into vectors for NarrativeMemory.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CollectionManager creates and drops the index behind NarrativeMemory.
// Only the Qdrant index supports it; init and the integration tests use it.
type CollectionManager interface {
	EnsureCollection(ctx context.Context, vectorSize uint64) error
	DeleteCollection(ctx context.Context) error
}
