package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func TestProposalHandler_ApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.createGame(t)

	f.analyzer.Changes = []entities.RelationshipChange{
		{FromID: "a", ToID: "b", Dimension: entities.DimTrust, Delta: 0.2, Reason: "saved her life"},
	}
	event := entities.CanonicalEvent{ID: "e1", GameID: game.ID, Turn: 1, Type: entities.EventAction, Content: "A pulls B from the surf."}

	first, err := f.worker.Process(ctx, event)
	require.NoError(t, err)
	second, err := f.worker.Process(ctx, event)
	require.NoError(t, err)

	pending, err := f.proposals.HandleList(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := f.proposals.HandleApprove(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalApproved, approved.Status)

	rel, err := f.relationships.HandleGet(ctx, game.ID, "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, entities.DimTrust.Default()+0.2, rel.Trust, 1e-9)

	_, err = f.proposals.HandleApprove(ctx, first.ID)
	assert.ErrorIs(t, err, entities.ErrProposalResolved)

	rejected, err := f.proposals.HandleReject(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalRejected, rejected.Status)

	pending, err = f.proposals.HandleList(ctx, game.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.proposals.HandleReject(ctx, "missing")
	assert.ErrorIs(t, err, entities.ErrProposalNotFound)
}
