package entities

import "time"

// ProposalStatus tracks DM review of an evolution proposal.
type ProposalStatus string

// Proposal statuses.
const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// RelationshipChange is a suggested shift of one dimension.
type RelationshipChange struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Dimension Dimension `json:"dimension"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason,omitempty"`
	// Applied marks a change already written by an approval.
	Applied bool `json:"applied,omitempty"`
}

// EvolutionProposal groups changes derived from one canonical event.
// Nothing is applied until the DM approves it.
type EvolutionProposal struct {
	ID        string               `json:"id"`
	GameID    string               `json:"game_id"`
	EventID   string               `json:"event_id"`
	Turn      int                  `json:"turn"`
	Changes   []RelationshipChange `json:"changes"`
	Status    ProposalStatus       `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}
