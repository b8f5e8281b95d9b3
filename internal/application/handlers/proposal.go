package handlers

import (
	"context"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/services"
)

// ProposalHandler handles DM review of relationship evolution proposals.
type ProposalHandler struct {
	worker *services.EvolutionWorker
}

// NewProposalHandler creates a new ProposalHandler.
func NewProposalHandler(worker *services.EvolutionWorker) *ProposalHandler {
	return &ProposalHandler{worker: worker}
}

// HandleList lists a game's pending proposals.
func (h *ProposalHandler) HandleList(ctx context.Context, gameID string) ([]entities.EvolutionProposal, error) {
	return h.worker.Pending(ctx, gameID)
}

// HandleApprove applies a pending proposal.
func (h *ProposalHandler) HandleApprove(ctx context.Context, proposalID string) (*entities.EvolutionProposal, error) {
	return h.worker.Approve(ctx, proposalID)
}

// HandleReject discards a pending proposal.
func (h *ProposalHandler) HandleReject(ctx context.Context, proposalID string) (*entities.EvolutionProposal, error) {
	return h.worker.Reject(ctx, proposalID)
}
