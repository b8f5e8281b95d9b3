package ports

import (
	"context"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// Broadcaster fans notifications out to every viewer of a game. Notifications
// for one game must be delivered in the order Broadcast was called.
type Broadcaster interface {
	Broadcast(ctx context.Context, gameID string, n entities.Notification) error
}

// EditorMetrics records editorial engine activity.
type EditorMetrics interface {
	GenerationStarted(gameID string)
	GenerationFinished(outcome string, seconds float64)
	GenerationSuperseded()
	EventCommitted(eventType entities.EventType)
	ActionSubmitted(action entities.ActionType)
	EvolutionDropped()
}
