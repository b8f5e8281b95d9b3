package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// SaveProposal inserts or updates an evolution proposal.
func (r *Repository) SaveProposal(ctx context.Context, p *entities.EvolutionProposal) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = timeNow()
	}
	changes, err := json.Marshal(p.Changes)
	if err != nil {
		return fmt.Errorf("marshaling changes: %w", err)
	}

	query := `
		INSERT INTO evolution_proposals (id, game_id, event_id, turn, changes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			changes = excluded.changes,
			status = excluded.status
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.GameID,
		p.EventID,
		p.Turn,
		string(changes),
		string(p.Status),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving proposal: %w", err)
	}
	return nil
}

const proposalColumns = `id, game_id, event_id, turn, changes, status, created_at`

func scanProposal(row scanner) (*entities.EvolutionProposal, error) {
	var (
		p       entities.EvolutionProposal
		changes string
		status  string
	)
	if err := row.Scan(&p.ID, &p.GameID, &p.EventID, &p.Turn, &changes, &status, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(changes), &p.Changes); err != nil {
		return nil, fmt.Errorf("decoding changes of proposal %s: %w", p.ID, err)
	}
	p.Status = entities.ProposalStatus(status)
	return &p, nil
}

// FindProposal finds a proposal by ID.
func (r *Repository) FindProposal(ctx context.Context, id string) (*entities.EvolutionProposal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM evolution_proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning proposal: %w", err)
	}
	return p, nil
}

// ListProposals lists a game's proposals oldest first. An empty status
// returns every proposal.
func (r *Repository) ListProposals(ctx context.Context, gameID string, status entities.ProposalStatus) ([]entities.EvolutionProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM evolution_proposals WHERE game_id = ?`
	args := []any{gameID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying proposals: %w", err)
	}
	defer rows.Close()

	var result []entities.EvolutionProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}
