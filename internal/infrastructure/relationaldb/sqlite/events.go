package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// AppendEvent advances the game's turn and stores the event at that turn in
// one transaction. Nothing is written when either step fails.
func (r *Repository) AppendEvent(ctx context.Context, event *entities.CanonicalEvent) (int, error) {
	witnesses := event.Witnesses
	if witnesses == nil {
		witnesses = []string{}
	}
	witnessJSON, err := json.Marshal(witnesses)
	if err != nil {
		return 0, fmt.Errorf("marshaling witnesses: %w", err)
	}

	var original sql.NullString
	if event.OriginalGenerated != "" {
		original = sql.NullString{String: event.OriginalGenerated, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	var turn int
	err = tx.QueryRowContext(ctx, `
		UPDATE games SET turn = turn + 1, updated_at = ?
		WHERE id = ?
		RETURNING turn
	`, timeNow(), event.GameID).Scan(&turn)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entities.ErrGameNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("advancing turn: %w", err)
	}

	query := `
		INSERT INTO events (id, game_id, turn, event_type, content, original_generated, speaker, location_id, witnesses, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		event.ID,
		event.GameID,
		turn,
		string(event.Type),
		event.Content,
		original,
		event.Speaker,
		event.LocationID,
		string(witnessJSON),
		event.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("creating event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing event: %w", err)
	}
	event.Turn = turn
	return turn, nil
}

// ListEvents returns the last limit events of a game in ascending turn order.
func (r *Repository) ListEvents(ctx context.Context, gameID string, limit int) ([]entities.CanonicalEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, game_id, turn, event_type, content, original_generated, speaker, location_id, witnesses, created_at
		FROM (
			SELECT * FROM events WHERE game_id = ? ORDER BY turn DESC LIMIT ?
		)
		ORDER BY turn ASC
	`
	rows, err := r.db.QueryContext(ctx, query, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var result []entities.CanonicalEvent
	for rows.Next() {
		var (
			e         entities.CanonicalEvent
			eventType string
			original  sql.NullString
			witnesses string
		)
		if err := rows.Scan(
			&e.ID,
			&e.GameID,
			&e.Turn,
			&eventType,
			&e.Content,
			&original,
			&e.Speaker,
			&e.LocationID,
			&witnesses,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = entities.EventType(eventType)
		e.OriginalGenerated = original.String
		if err := json.Unmarshal([]byte(witnesses), &e.Witnesses); err != nil {
			return nil, fmt.Errorf("decoding witnesses of event %s: %w", e.ID, err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
