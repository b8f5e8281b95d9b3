// Package sqlite provides a SQLite implementation of the ports.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/loremaster/internal/infrastructure/config"
)

// generateUUID returns a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.Store using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Games (one per campaign session)
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		current_area_id TEXT NOT NULL DEFAULT '',
		current_scene_id TEXT NOT NULL DEFAULT '',
		turn INTEGER NOT NULL DEFAULT 0 CHECK (turn >= 0),
		playback_mode TEXT NOT NULL DEFAULT 'paused'
			CHECK (playback_mode IN ('auto', 'paused', 'stepping', 'stopped')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Canonical events (append-only, one per turn)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		turn INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		content TEXT NOT NULL,
		original_generated TEXT,
		speaker TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		witnesses TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(game_id, turn)
	);
	CREATE INDEX IF NOT EXISTS idx_events_game_turn ON events(game_id, turn);

	-- Editor state (transient, one per game)
	CREATE TABLE IF NOT EXISTS editor_states (
		game_id TEXT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK (status IN ('idle', 'generating', 'editing', 'accepting')),
		pending TEXT,
		edited_content TEXT,
		generation_id TEXT NOT NULL DEFAULT '',
		pending_event_type TEXT NOT NULL DEFAULT '',
		pending_speaker TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CHECK (pending IS NULL OR status != 'idle')
	);

	-- True relationships (directional)
	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		trust REAL NOT NULL DEFAULT 0.5 CHECK (trust BETWEEN 0.0 AND 1.0),
		respect REAL NOT NULL DEFAULT 0.5 CHECK (respect BETWEEN 0.0 AND 1.0),
		affection REAL NOT NULL DEFAULT 0.5 CHECK (affection BETWEEN 0.0 AND 1.0),
		fear REAL NOT NULL DEFAULT 0.0 CHECK (fear BETWEEN 0.0 AND 1.0),
		resentment REAL NOT NULL DEFAULT 0.0 CHECK (resentment BETWEEN 0.0 AND 1.0),
		debt REAL NOT NULL DEFAULT 0.0 CHECK (debt BETWEEN 0.0 AND 1.0),
		updated_turn INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(game_id, from_id, to_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(game_id, from_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(game_id, to_id);

	-- Perceived relationships (NULL means unknown to the perceiver)
	CREATE TABLE IF NOT EXISTS perceived_relationships (
		game_id TEXT NOT NULL,
		perceiver_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		perceived_trust REAL CHECK (perceived_trust BETWEEN 0.0 AND 1.0),
		perceived_respect REAL CHECK (perceived_respect BETWEEN 0.0 AND 1.0),
		perceived_affection REAL CHECK (perceived_affection BETWEEN 0.0 AND 1.0),
		last_updated_turn INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (game_id, perceiver_id, target_id)
	);

	-- Characters and traits
	CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		in_party INTEGER NOT NULL DEFAULT 0,
		sheet TEXT NOT NULL DEFAULT '{}',
		UNIQUE(game_id, normalized_name)
	);

	CREATE TABLE IF NOT EXISTS traits (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		character_id TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('active', 'dormant', 'removed', 'proposed')),
		acquired_turn INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_traits_game ON traits(game_id, character_id);

	-- Locations
	CREATE TABLE IF NOT EXISTS areas (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS scenes (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		area_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	-- Evolution proposals awaiting DM review
	CREATE TABLE IF NOT EXISTS evolution_proposals (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		changes TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_proposals_game ON evolution_proposals(game_id, status);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
