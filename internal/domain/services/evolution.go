package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// DefaultEvolutionQueueSize bounds the committed-event backlog.
const DefaultEvolutionQueueSize = 64

// EvolutionQueue hands committed events to the evolution worker. It never
// blocks the editorial engine: when full, events are dropped and counted.
type EvolutionQueue struct {
	events  chan entities.CanonicalEvent
	metrics ports.EditorMetrics
	logger  *zap.Logger
}

// NewEvolutionQueue creates a queue holding up to size events.
func NewEvolutionQueue(size int, metrics ports.EditorMetrics, logger *zap.Logger) *EvolutionQueue {
	if size <= 0 {
		size = DefaultEvolutionQueueSize
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvolutionQueue{
		events:  make(chan entities.CanonicalEvent, size),
		metrics: metrics,
		logger:  logger.Named("evolution"),
	}
}

// Offer enqueues an event without blocking and reports whether it was accepted.
func (q *EvolutionQueue) Offer(event entities.CanonicalEvent) bool {
	select {
	case q.events <- event:
		return true
	default:
		q.metrics.EvolutionDropped()
		q.logger.Warn("evolution queue full, dropping event",
			zap.String("game_id", event.GameID),
			zap.String("event_id", event.ID),
			zap.Int("turn", event.Turn))
		return false
	}
}

// Len returns the number of queued events.
func (q *EvolutionQueue) Len() int {
	return len(q.events)
}

// EvolutionWorker turns committed events into relationship change proposals.
// Nothing changes until the DM approves a proposal.
type EvolutionWorker struct {
	queue         *EvolutionQueue
	memory        ports.NarrativeMemory
	analyzer      ports.EvolutionAnalyzer
	relationships *RelationshipService
	proposals     ports.ProposalRepository

	// mu serializes approval so a proposal is applied at most once.
	mu     sync.Mutex
	logger *zap.Logger
}

// NewEvolutionWorker creates an EvolutionWorker. memory and analyzer may be nil.
func NewEvolutionWorker(
	queue *EvolutionQueue,
	memory ports.NarrativeMemory,
	analyzer ports.EvolutionAnalyzer,
	relationships *RelationshipService,
	proposals ports.ProposalRepository,
	logger *zap.Logger,
) *EvolutionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvolutionWorker{
		queue:         queue,
		memory:        memory,
		analyzer:      analyzer,
		relationships: relationships,
		proposals:     proposals,
		logger:        logger.Named("evolution"),
	}
}

// Run consumes the queue until ctx is done.
func (w *EvolutionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.queue.events:
			w.handle(ctx, event)
		}
	}
}

// Drain processes every queued event and returns once the queue is empty.
func (w *EvolutionWorker) Drain(ctx context.Context) {
	for {
		select {
		case event := <-w.queue.events:
			w.handle(ctx, event)
		default:
			return
		}
	}
}

func (w *EvolutionWorker) handle(ctx context.Context, event entities.CanonicalEvent) {
	if _, err := w.Process(ctx, event); err != nil {
		w.logger.Error("processing event",
			zap.String("game_id", event.GameID),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// Process indexes one event and stores the analyzer's proposal, if any.
func (w *EvolutionWorker) Process(ctx context.Context, event entities.CanonicalEvent) (*entities.EvolutionProposal, error) {
	if w.memory != nil {
		if err := w.memory.Remember(ctx, event); err != nil {
			w.logger.Warn("indexing event", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	if w.analyzer == nil {
		return nil, nil
	}

	rels, err := w.relationships.List(ctx, event.GameID)
	if err != nil {
		return nil, err
	}
	changes, err := w.analyzer.ProposeChanges(ctx, event, rels)
	if err != nil {
		return nil, fmt.Errorf("analyzing event: %w", err)
	}
	changes = sanitizeChanges(changes)
	if len(changes) == 0 {
		return nil, nil
	}

	proposal := &entities.EvolutionProposal{
		ID:        uuid.New().String(),
		GameID:    event.GameID,
		EventID:   event.ID,
		Turn:      event.Turn,
		Changes:   changes,
		Status:    entities.ProposalPending,
		CreatedAt: time.Now(),
	}
	if err := w.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("saving proposal: %w", err)
	}
	w.logger.Info("proposal created",
		zap.String("game_id", event.GameID),
		zap.String("proposal_id", proposal.ID),
		zap.Int("changes", len(changes)))
	return proposal, nil
}

// sanitizeChanges drops changes that could never apply and bounds deltas to [-1, 1].
func sanitizeChanges(changes []entities.RelationshipChange) []entities.RelationshipChange {
	var kept []entities.RelationshipChange
	for _, c := range changes {
		if c.FromID == "" || c.ToID == "" || c.FromID == c.ToID {
			continue
		}
		if c.Dimension < entities.DimTrust || c.Dimension > entities.DimDebt {
			continue
		}
		if math.IsNaN(c.Delta) || math.IsInf(c.Delta, 0) || c.Delta == 0 {
			continue
		}
		c.Delta = math.Max(-1, math.Min(1, c.Delta))
		kept = append(kept, c)
	}
	return kept
}

// Pending lists a game's proposals awaiting review.
func (w *EvolutionWorker) Pending(ctx context.Context, gameID string) ([]entities.EvolutionProposal, error) {
	proposals, err := w.proposals.ListProposals(ctx, gameID, entities.ProposalPending)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	return proposals, nil
}

// Approve applies every change of a pending proposal.
func (w *EvolutionWorker) Approve(ctx context.Context, proposalID string) (*entities.EvolutionProposal, error) {
	return w.resolve(ctx, proposalID, entities.ProposalApproved)
}

// Reject discards a pending proposal.
func (w *EvolutionWorker) Reject(ctx context.Context, proposalID string) (*entities.EvolutionProposal, error) {
	return w.resolve(ctx, proposalID, entities.ProposalRejected)
}

func (w *EvolutionWorker) resolve(ctx context.Context, proposalID string, status entities.ProposalStatus) (*entities.EvolutionProposal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	proposal, err := w.proposals.FindProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("finding proposal: %w", err)
	}
	if proposal == nil {
		return nil, entities.ErrProposalNotFound
	}
	if proposal.Status != entities.ProposalPending {
		return nil, fmt.Errorf("%w: %s", entities.ErrProposalResolved, proposal.Status)
	}

	if status == entities.ProposalApproved {
		if err := w.apply(ctx, proposal); err != nil {
			return nil, err
		}
	}

	proposal.Status = status
	if err := w.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("saving proposal: %w", err)
	}
	return proposal, nil
}

// apply writes each change not yet applied and records its progress, so a
// retried approval after a partial failure never adds a delta twice.
func (w *EvolutionWorker) apply(ctx context.Context, proposal *entities.EvolutionProposal) error {
	for i := range proposal.Changes {
		c := &proposal.Changes[i]
		if c.Applied {
			continue
		}
		if _, err := w.relationships.Adjust(ctx, proposal.GameID, c.FromID, c.ToID, c.Dimension, c.Delta, proposal.Turn); err != nil {
			return fmt.Errorf("applying %s change %s->%s: %w", c.Dimension, c.FromID, c.ToID, err)
		}
		c.Applied = true
		if err := w.proposals.SaveProposal(ctx, proposal); err != nil {
			w.logger.Error("recording applied change",
				zap.String("proposal_id", proposal.ID),
				zap.Int("change", i),
				zap.Error(err))
			return fmt.Errorf("recording applied change: %w", err)
		}
	}
	return nil
}
