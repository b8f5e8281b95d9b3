package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// NarrativeMemory is a mock implementation of ports.NarrativeMemory that
// recalls by substring match.
type NarrativeMemory struct {
	mu     sync.Mutex
	Events []entities.CanonicalEvent
	Err    error
}

// Remember stores the event.
func (m *NarrativeMemory) Remember(_ context.Context, event entities.CanonicalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

// Recall returns stored events of the game whose content shares a word with the query.
func (m *NarrativeMemory) Recall(_ context.Context, gameID, query string, limit int) ([]entities.CanonicalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	words := strings.Fields(strings.ToLower(query))
	var result []entities.CanonicalEvent
	for _, e := range m.Events {
		if e.GameID != gameID {
			continue
		}
		content := strings.ToLower(e.Content)
		for _, w := range words {
			if strings.Contains(content, w) {
				result = append(result, e)
				break
			}
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Count returns the number of remembered events.
func (m *NarrativeMemory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}

// Embedder is a mock implementation of ports.Embedder.
type Embedder struct {
	Vector []float32
	Err    error
}

// Embed returns the configured vector or error.
func (m *Embedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}

// EmbedBatch returns the configured vector for each text.
func (m *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.Vector
	}
	return result, nil
}
