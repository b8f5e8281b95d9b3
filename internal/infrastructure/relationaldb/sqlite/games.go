package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

const gameColumns = `id, name, current_area_id, current_scene_id, turn, playback_mode, created_at, updated_at`

func scanGame(row scanner) (*entities.Game, error) {
	var g entities.Game
	var mode string
	if err := row.Scan(&g.ID, &g.Name, &g.CurrentAreaID, &g.CurrentSceneID, &g.Turn, &mode, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.PlaybackMode = entities.PlaybackMode(mode)
	return &g, nil
}

// CreateGame stores a new game.
func (r *Repository) CreateGame(ctx context.Context, game *entities.Game) error {
	if game.ID == "" {
		game.ID = generateUUID()
	}
	if game.PlaybackMode == "" {
		game.PlaybackMode = entities.PlaybackPaused
	}
	now := timeNow()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = now
	}
	game.UpdatedAt = now

	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		game.ID,
		game.Name,
		game.CurrentAreaID,
		game.CurrentSceneID,
		game.Turn,
		string(game.PlaybackMode),
		game.CreatedAt,
		game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating game: %w", err)
	}
	return nil
}

// FindGameByID finds a game by its ID.
func (r *Repository) FindGameByID(ctx context.Context, id string) (*entities.Game, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning game: %w", err)
	}
	return game, nil
}

// ListGames lists games, most recently updated first.
func (r *Repository) ListGames(ctx context.Context, limit int) ([]entities.Game, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games ORDER BY updated_at DESC, name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	var result []entities.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		result = append(result, *game)
	}
	return result, rows.Err()
}

// UpdateGame persists name and location changes. Turn and playback mode
// have dedicated methods.
func (r *Repository) UpdateGame(ctx context.Context, game *entities.Game) error {
	game.UpdatedAt = timeNow()
	res, err := r.db.ExecContext(ctx, `
		UPDATE games SET name = ?, current_area_id = ?, current_scene_id = ?, updated_at = ?
		WHERE id = ?
	`, game.Name, game.CurrentAreaID, game.CurrentSceneID, game.UpdatedAt, game.ID)
	if err != nil {
		return fmt.Errorf("updating game: %w", err)
	}
	return requireOneRow(res, entities.ErrGameNotFound)
}

// SetPlaybackMode changes the stored playback mode.
func (r *Repository) SetPlaybackMode(ctx context.Context, id string, mode entities.PlaybackMode) error {
	res, err := r.db.ExecContext(ctx, `UPDATE games SET playback_mode = ?, updated_at = ? WHERE id = ?`,
		string(mode), timeNow(), id)
	if err != nil {
		return fmt.Errorf("setting playback mode: %w", err)
	}
	return requireOneRow(res, entities.ErrGameNotFound)
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
