package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// Broadcaster records every notification it receives.
type Broadcaster struct {
	mu   sync.Mutex
	Sent []entities.Notification
	Err  error
}

// Broadcast records the notification.
func (m *Broadcaster) Broadcast(_ context.Context, _ string, n entities.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	return m.Err
}

// Kinds returns the kinds of every recorded notification in order.
func (m *Broadcaster) Kinds() []entities.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]entities.NotificationKind, len(m.Sent))
	for i := range m.Sent {
		kinds[i] = m.Sent[i].Kind
	}
	return kinds
}

// Last returns the most recent notification of the given kind.
func (m *Broadcaster) Last(kind entities.NotificationKind) (entities.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].Kind == kind {
			return m.Sent[i], true
		}
	}
	return entities.Notification{}, false
}
