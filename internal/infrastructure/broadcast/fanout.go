// Package broadcast combines notification sinks.
package broadcast

import (
	"context"
	"errors"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// Fanout delivers every notification to each sink in order. A failing sink
// does not stop delivery to the others.
type Fanout struct {
	sinks []ports.Broadcaster
}

// NewFanout creates a Fanout over the non-nil sinks.
func NewFanout(sinks ...ports.Broadcaster) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Broadcast implements ports.Broadcaster.
func (f *Fanout) Broadcast(ctx context.Context, gameID string, n entities.Notification) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Broadcast(ctx, gameID, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
