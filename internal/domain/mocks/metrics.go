package mocks

import (
	"sync"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// Metrics counts ports.EditorMetrics calls.
type Metrics struct {
	mu         sync.Mutex
	Started    int
	Outcomes   map[string]int
	Superseded int
	Committed  map[entities.EventType]int
	Actions    map[entities.ActionType]int
	Dropped    int
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes:  make(map[string]int),
		Committed: make(map[entities.EventType]int),
		Actions:   make(map[entities.ActionType]int),
	}
}

func (m *Metrics) GenerationStarted(_ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started++
}

func (m *Metrics) GenerationFinished(outcome string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes[outcome]++
}

func (m *Metrics) GenerationSuperseded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Superseded++
}

func (m *Metrics) EventCommitted(eventType entities.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed[eventType]++
}

func (m *Metrics) ActionSubmitted(action entities.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Actions[action]++
}

func (m *Metrics) EvolutionDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dropped++
}
