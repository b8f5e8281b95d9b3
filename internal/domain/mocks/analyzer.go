package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// EvolutionAnalyzer is a mock implementation of ports.EvolutionAnalyzer.
type EvolutionAnalyzer struct {
	mu      sync.Mutex
	Changes []entities.RelationshipChange
	Err     error
	Seen    []entities.CanonicalEvent
}

// ProposeChanges returns the configured changes or error.
func (m *EvolutionAnalyzer) ProposeChanges(_ context.Context, event entities.CanonicalEvent, _ []entities.Relationship) ([]entities.RelationshipChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seen = append(m.Seen, event)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Changes, nil
}
