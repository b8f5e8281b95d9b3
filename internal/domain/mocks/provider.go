package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// Provider is a mock implementation of ports.NarrativeProvider.
// Responses are served in order; the last one repeats once the script runs out.
type Provider struct {
	mu sync.Mutex

	// Responses are returned in call order.
	Responses []string
	// EventType is set on every response.
	EventType entities.EventType
	// Err, when set, is returned instead of a response.
	Err error
	// HoldFirst, when set, holds the first call in flight until it is closed.
	HoldFirst chan struct{}
	// Entered, when set, receives each call number as the call starts.
	Entered chan int

	Calls    int
	Requests []ports.GenerationRequest
}

// Execute returns the next scripted response.
func (m *Provider) Execute(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResponse, error) {
	m.mu.Lock()
	m.Calls++
	call := m.Calls
	m.Requests = append(m.Requests, req)
	hold := m.HoldFirst
	entered := m.Entered
	err := m.Err
	m.mu.Unlock()

	if entered != nil {
		select {
		case entered <- call:
		default:
		}
	}
	if hold != nil && call == 1 {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	content := "generated"
	m.mu.Lock()
	if len(m.Responses) > 0 {
		idx := call - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		content = m.Responses[idx]
	}
	eventType := m.EventType
	m.mu.Unlock()
	if eventType == "" {
		eventType = entities.EventNarration
	}
	return &ports.GenerationResponse{Content: content, EventType: eventType}, nil
}

// CallCount returns the number of Execute calls.
func (m *Provider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// LastRequest returns the most recent request.
func (m *Provider) LastRequest() ports.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return ports.GenerationRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}
