package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/mocks"
)

func TestEvolutionQueue_DropsWhenFull(t *testing.T) {
	metrics := mocks.NewMetrics()
	q := NewEvolutionQueue(2, metrics, nil)

	assert.True(t, q.Offer(entities.CanonicalEvent{ID: "e1"}))
	assert.True(t, q.Offer(entities.CanonicalEvent{ID: "e2"}))
	assert.False(t, q.Offer(entities.CanonicalEvent{ID: "e3"}))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, metrics.Dropped)
}

type evolutionFixture struct {
	worker   *EvolutionWorker
	queue    *EvolutionQueue
	store    *mocks.Store
	memory   *mocks.NarrativeMemory
	analyzer *mocks.EvolutionAnalyzer
}

func newEvolutionFixture() *evolutionFixture {
	f := &evolutionFixture{
		store:    mocks.NewStore(),
		memory:   &mocks.NarrativeMemory{},
		analyzer: &mocks.EvolutionAnalyzer{},
	}
	f.queue = NewEvolutionQueue(4, nil, nil)
	f.worker = NewEvolutionWorker(f.queue, f.memory, f.analyzer, NewRelationshipService(f.store, f.store), f.store, nil)
	return f
}

func TestEvolutionWorker_ProcessCreatesPendingProposal(t *testing.T) {
	f := newEvolutionFixture()
	f.analyzer.Changes = []entities.RelationshipChange{
		{FromID: "mira", ToID: "bren", Dimension: entities.DimTrust, Delta: 0.2, Reason: "saved her life"},
		{FromID: "mira", ToID: "mira", Dimension: entities.DimTrust, Delta: 0.2},
		{FromID: "mira", ToID: "vex", Dimension: entities.DimFear, Delta: math.NaN()},
		{FromID: "mira", ToID: "vex", Dimension: entities.DimDebt, Delta: 3},
	}
	ctx := context.Background()

	proposal, err := f.worker.Process(ctx, entities.CanonicalEvent{ID: "e1", GameID: "g1", Turn: 4, Content: "Bren pulls Mira from the sea."})
	require.NoError(t, err)

	require.NotNil(t, proposal)
	assert.Equal(t, entities.ProposalPending, proposal.Status)
	assert.Equal(t, 4, proposal.Turn)
	require.Len(t, proposal.Changes, 2)
	assert.Equal(t, 1.0, proposal.Changes[1].Delta)
	assert.Equal(t, 1, f.memory.Count())

	pending, err := f.worker.Pending(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Empty(t, f.store.Relationships, "nothing applies before approval")
}

func TestEvolutionWorker_ProcessWithoutChanges(t *testing.T) {
	f := newEvolutionFixture()

	proposal, err := f.worker.Process(context.Background(), entities.CanonicalEvent{ID: "e1", GameID: "g1"})

	require.NoError(t, err)
	assert.Nil(t, proposal)
	assert.Empty(t, f.store.Proposals)
}

func TestEvolutionWorker_AnalyzerFailure(t *testing.T) {
	f := newEvolutionFixture()
	f.analyzer.Err = errors.New("model offline")

	_, err := f.worker.Process(context.Background(), entities.CanonicalEvent{ID: "e1", GameID: "g1"})

	assert.ErrorContains(t, err, "analyzing event")
	assert.Equal(t, 1, f.memory.Count(), "indexing happens before analysis")
}

func TestEvolutionWorker_Approve(t *testing.T) {
	f := newEvolutionFixture()
	f.analyzer.Changes = []entities.RelationshipChange{
		{FromID: "mira", ToID: "bren", Dimension: entities.DimTrust, Delta: 0.2},
		{FromID: "mira", ToID: "bren", Dimension: entities.DimDebt, Delta: 0.6},
	}
	ctx := context.Background()
	proposal, err := f.worker.Process(ctx, entities.CanonicalEvent{ID: "e1", GameID: "g1", Turn: 2})
	require.NoError(t, err)

	approved, err := f.worker.Approve(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalApproved, approved.Status)

	rel, err := f.store.FindRelationship(ctx, "g1", "mira", "bren")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.InDelta(t, 0.7, rel.Trust, 1e-9)
	assert.InDelta(t, 0.6, rel.Debt, 1e-9)
	assert.Equal(t, 2, rel.UpdatedTurn)

	_, err = f.worker.Approve(ctx, proposal.ID)
	assert.ErrorIs(t, err, entities.ErrProposalResolved)
}

// flakyDimensions fails UpdateDimension after letting skip calls through.
type flakyDimensions struct {
	*mocks.Store
	skip int
	fail int
}

func (s *flakyDimensions) UpdateDimension(ctx context.Context, gameID, fromID, toID string, dim entities.Dimension, value float64, turn int) error {
	if trip(&s.skip, &s.fail) {
		return errDiskIO
	}
	return s.Store.UpdateDimension(ctx, gameID, fromID, toID, dim, value, turn)
}

func TestEvolutionWorker_ApproveRetryAfterPartialFailure(t *testing.T) {
	store := mocks.NewStore()
	rels := &flakyDimensions{Store: store, skip: 1, fail: 1}
	analyzer := &mocks.EvolutionAnalyzer{Changes: []entities.RelationshipChange{
		{FromID: "mira", ToID: "bren", Dimension: entities.DimTrust, Delta: 0.2},
		{FromID: "mira", ToID: "bren", Dimension: entities.DimDebt, Delta: 0.3},
	}}
	worker := NewEvolutionWorker(NewEvolutionQueue(4, nil, nil), nil, analyzer, NewRelationshipService(rels, store), store, nil)
	ctx := context.Background()

	proposal, err := worker.Process(ctx, entities.CanonicalEvent{ID: "e1", GameID: "g1", Turn: 3})
	require.NoError(t, err)

	_, err = worker.Approve(ctx, proposal.ID)
	require.ErrorIs(t, err, errDiskIO)

	stored, err := store.FindProposal(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalPending, stored.Status)
	assert.True(t, stored.Changes[0].Applied)
	assert.False(t, stored.Changes[1].Applied)

	approved, err := worker.Approve(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalApproved, approved.Status)

	rel, err := store.FindRelationship(ctx, "g1", "mira", "bren")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.InDelta(t, 0.7, rel.Trust, 1e-9, "trust delta applied once")
	assert.InDelta(t, 0.3, rel.Debt, 1e-9)
}

func TestEvolutionWorker_Reject(t *testing.T) {
	f := newEvolutionFixture()
	f.analyzer.Changes = []entities.RelationshipChange{{FromID: "a", ToID: "b", Dimension: entities.DimFear, Delta: 0.5}}
	ctx := context.Background()
	proposal, err := f.worker.Process(ctx, entities.CanonicalEvent{ID: "e1", GameID: "g1"})
	require.NoError(t, err)

	rejected, err := f.worker.Reject(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalRejected, rejected.Status)
	assert.Empty(t, f.store.Relationships)

	_, err = f.worker.Reject(ctx, "nope")
	assert.ErrorIs(t, err, entities.ErrProposalNotFound)
}

func TestEvolutionWorker_RunConsumesQueue(t *testing.T) {
	f := newEvolutionFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()

	require.True(t, f.queue.Offer(entities.CanonicalEvent{ID: "e1", GameID: "g1", Content: "x"}))
	require.Eventually(t, func() bool { return f.memory.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestEvolutionWorker_Drain(t *testing.T) {
	f := newEvolutionFixture()
	f.analyzer.Changes = []entities.RelationshipChange{{FromID: "a", ToID: "b", Dimension: entities.DimFear, Delta: 0.3}}

	require.True(t, f.queue.Offer(entities.CanonicalEvent{ID: "e1", GameID: "g1", Turn: 1, Content: "x"}))
	require.True(t, f.queue.Offer(entities.CanonicalEvent{ID: "e2", GameID: "g1", Turn: 2, Content: "y"}))

	f.worker.Drain(context.Background())

	assert.Zero(t, f.queue.Len())
	pending, err := f.worker.Pending(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// Draining an empty queue returns immediately.
	f.worker.Drain(context.Background())
}
