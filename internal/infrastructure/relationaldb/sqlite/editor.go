package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// GetEditorState returns the stored editor state, or idle when none is stored.
func (r *Repository) GetEditorState(ctx context.Context, gameID string) (entities.DMEditorState, error) {
	query := `
		SELECT game_id, status, pending, edited_content, generation_id, pending_event_type, pending_speaker, updated_at
		FROM editor_states
		WHERE game_id = ?
	`
	var (
		s         entities.DMEditorState
		status    string
		pending   sql.NullString
		edited    sql.NullString
		eventType string
	)
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&s.GameID,
		&status,
		&pending,
		&edited,
		&s.GenerationID,
		&eventType,
		&s.PendingSpeaker,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.IdleEditorState(gameID), nil
	}
	if err != nil {
		return entities.DMEditorState{}, fmt.Errorf("scanning editor state: %w", err)
	}
	s.Status = entities.EditorStatus(status)
	s.Pending = stringPtr(pending)
	s.EditedContent = stringPtr(edited)
	s.PendingEventType = entities.EventType(eventType)
	return s, nil
}

// SetEditorState replaces the stored editor state.
func (r *Repository) SetEditorState(ctx context.Context, state entities.DMEditorState) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = timeNow()
	}
	query := `
		INSERT INTO editor_states (game_id, status, pending, edited_content, generation_id, pending_event_type, pending_speaker, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			status = excluded.status,
			pending = excluded.pending,
			edited_content = excluded.edited_content,
			generation_id = excluded.generation_id,
			pending_event_type = excluded.pending_event_type,
			pending_speaker = excluded.pending_speaker,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		state.GameID,
		string(state.Status),
		nullableString(state.Pending),
		nullableString(state.EditedContent),
		state.GenerationID,
		string(state.PendingEventType),
		state.PendingSpeaker,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving editor state: %w", err)
	}
	return nil
}

// ClearEditorState resets a game's editor to idle.
func (r *Repository) ClearEditorState(ctx context.Context, gameID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM editor_states WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("clearing editor state: %w", err)
	}
	return nil
}
