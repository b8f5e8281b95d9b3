package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

const relationshipColumns = `id, game_id, from_id, to_id, trust, respect, affection, fear, resentment, debt, updated_turn, updated_at`

func scanRelationship(row scanner) (*entities.Relationship, error) {
	var rel entities.Relationship
	err := row.Scan(
		&rel.ID,
		&rel.GameID,
		&rel.FromID,
		&rel.ToID,
		&rel.Trust,
		&rel.Respect,
		&rel.Affection,
		&rel.Fear,
		&rel.Resentment,
		&rel.Debt,
		&rel.UpdatedTurn,
		&rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func collectRelationships(rows *sql.Rows) ([]entities.Relationship, error) {
	defer rows.Close()

	var result []entities.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		result = append(result, *rel)
	}
	return result, rows.Err()
}

// UpsertRelationship inserts or replaces every dimension of a relationship.
// The table's CHECK constraints reject values outside [0, 1].
func (r *Repository) UpsertRelationship(ctx context.Context, rel *entities.Relationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = generateUUID()
	}
	if rel.UpdatedAt.IsZero() {
		rel.UpdatedAt = timeNow()
	}

	query := `
		INSERT INTO relationships (` + relationshipColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, from_id, to_id) DO UPDATE SET
			trust = excluded.trust,
			respect = excluded.respect,
			affection = excluded.affection,
			fear = excluded.fear,
			resentment = excluded.resentment,
			debt = excluded.debt,
			updated_turn = excluded.updated_turn,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rel.ID,
		rel.GameID,
		rel.FromID,
		rel.ToID,
		rel.Trust,
		rel.Respect,
		rel.Affection,
		rel.Fear,
		rel.Resentment,
		rel.Debt,
		rel.UpdatedTurn,
		rel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting relationship: %w", err)
	}
	return nil
}

// FindRelationship returns the stored relationship from one entity to
// another, or nil if none is stored.
func (r *Repository) FindRelationship(ctx context.Context, gameID, fromID, toID string) (*entities.Relationship, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE game_id = ? AND from_id = ? AND to_id = ?`,
		gameID, fromID, toID)
	rel, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relationship: %w", err)
	}
	return rel, nil
}

// ListRelationships returns every relationship in a game.
func (r *Repository) ListRelationships(ctx context.Context, gameID string) ([]entities.Relationship, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE game_id = ? ORDER BY from_id, to_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	return collectRelationships(rows)
}

// UpdateDimension sets a single dimension, creating the relationship with
// defaults for the other dimensions if it does not exist.
func (r *Repository) UpdateDimension(ctx context.Context, gameID, fromID, toID string, dim entities.Dimension, value float64, turn int) error {
	rel := entities.NewRelationship(gameID, fromID, toID)
	if err := rel.Set(dim, value); err != nil {
		return err
	}
	rel.ID = generateUUID()
	rel.UpdatedTurn = turn
	rel.UpdatedAt = timeNow()

	// dim.String() is one of six fixed column names; Set rejected anything else.
	column := dim.String()
	query := fmt.Sprintf(`
		INSERT INTO relationships (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, from_id, to_id) DO UPDATE SET
			%s = excluded.%s,
			updated_turn = excluded.updated_turn,
			updated_at = excluded.updated_at
	`, relationshipColumns, column, column)

	_, err := r.db.ExecContext(ctx, query,
		rel.ID,
		rel.GameID,
		rel.FromID,
		rel.ToID,
		rel.Trust,
		rel.Respect,
		rel.Affection,
		rel.Fear,
		rel.Resentment,
		rel.Debt,
		rel.UpdatedTurn,
		rel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}
	return nil
}

// FindByThreshold returns relationships whose dimension satisfies op value.
func (r *Repository) FindByThreshold(ctx context.Context, gameID string, dim entities.Dimension, op entities.Operator, value float64) ([]entities.Relationship, error) {
	if _, err := dim.MarshalText(); err != nil {
		return nil, err
	}
	if _, err := entities.ParseOperator(op.String()); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM relationships WHERE game_id = ? AND %s %s ? ORDER BY from_id, to_id`,
		relationshipColumns, dim.String(), op.String())
	rows, err := r.db.QueryContext(ctx, query, gameID, value)
	if err != nil {
		return nil, fmt.Errorf("querying relationships by threshold: %w", err)
	}
	return collectRelationships(rows)
}

// DeleteRelationshipsByEntity removes every relationship and perception
// involving the entity in either direction.
func (r *Repository) DeleteRelationshipsByEntity(ctx context.Context, gameID, entityID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relationships WHERE game_id = ? AND (from_id = ? OR to_id = ?)`,
		gameID, entityID, entityID); err != nil {
		return fmt.Errorf("deleting relationships: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM perceived_relationships WHERE game_id = ? AND (perceiver_id = ? OR target_id = ?)`,
		gameID, entityID, entityID); err != nil {
		return fmt.Errorf("deleting perceptions: %w", err)
	}
	return tx.Commit()
}

func nullablePerception(p entities.Perception) sql.NullFloat64 {
	v, ok := p.Value()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func perceptionFrom(n sql.NullFloat64) entities.Perception {
	if !n.Valid {
		return entities.Unknown()
	}
	return entities.Known(n.Float64)
}

// UpsertPerception inserts or replaces what a perceiver believes about a target.
func (r *Repository) UpsertPerception(ctx context.Context, p *entities.PerceivedRelationship) error {
	query := `
		INSERT INTO perceived_relationships (game_id, perceiver_id, target_id, perceived_trust, perceived_respect, perceived_affection, last_updated_turn)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, perceiver_id, target_id) DO UPDATE SET
			perceived_trust = excluded.perceived_trust,
			perceived_respect = excluded.perceived_respect,
			perceived_affection = excluded.perceived_affection,
			last_updated_turn = excluded.last_updated_turn
	`
	_, err := r.db.ExecContext(ctx, query,
		p.GameID,
		p.PerceiverID,
		p.TargetID,
		nullablePerception(p.PerceivedTrust),
		nullablePerception(p.PerceivedRespect),
		nullablePerception(p.PerceivedAffection),
		p.LastUpdatedTurn,
	)
	if err != nil {
		return fmt.Errorf("upserting perception: %w", err)
	}
	return nil
}

func scanPerception(row scanner) (*entities.PerceivedRelationship, error) {
	var p entities.PerceivedRelationship
	var trust, respect, affection sql.NullFloat64
	if err := row.Scan(&p.GameID, &p.PerceiverID, &p.TargetID, &trust, &respect, &affection, &p.LastUpdatedTurn); err != nil {
		return nil, err
	}
	p.PerceivedTrust = perceptionFrom(trust)
	p.PerceivedRespect = perceptionFrom(respect)
	p.PerceivedAffection = perceptionFrom(affection)
	return &p, nil
}

const perceptionColumns = `game_id, perceiver_id, target_id, perceived_trust, perceived_respect, perceived_affection, last_updated_turn`

// FindPerception returns a perceiver's beliefs about a target, or nil.
func (r *Repository) FindPerception(ctx context.Context, gameID, perceiverID, targetID string) (*entities.PerceivedRelationship, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+perceptionColumns+` FROM perceived_relationships WHERE game_id = ? AND perceiver_id = ? AND target_id = ?`,
		gameID, perceiverID, targetID)
	p, err := scanPerception(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning perception: %w", err)
	}
	return p, nil
}

// ListPerceptions returns every perceived relationship in a game.
func (r *Repository) ListPerceptions(ctx context.Context, gameID string) ([]entities.PerceivedRelationship, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+perceptionColumns+` FROM perceived_relationships WHERE game_id = ? ORDER BY perceiver_id, target_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying perceptions: %w", err)
	}
	defer rows.Close()

	var result []entities.PerceivedRelationship
	for rows.Next() {
		p, err := scanPerception(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning perception: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}
