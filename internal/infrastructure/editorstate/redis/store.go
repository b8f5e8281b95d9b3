// Package redis keeps per-game editor state in Redis so it survives
// process restarts without touching the canonical store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
)

// Compile-time check to ensure Store implements EditorStateRepository.
var _ ports.EditorStateRepository = (*Store)(nil)

// kv is the subset of redis commands the store uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store implements ports.EditorStateRepository on Redis. Each state expires
// after TTL of inactivity; an expired state reads as idle.
type Store struct {
	client kv
	closer func() error
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	s := newStore(client, cfg.TTL, logger)
	s.closer = client.Close
	return s, nil
}

func newStore(client kv, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger.Named("editorstate"),
	}
}

func key(gameID string) string {
	return fmt.Sprintf("loremaster:editor:%s", gameID)
}

// GetEditorState returns the stored state, or idle when none is stored.
func (s *Store) GetEditorState(ctx context.Context, gameID string) (entities.DMEditorState, error) {
	raw, err := s.client.Get(ctx, key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.IdleEditorState(gameID), nil
	}
	if err != nil {
		return entities.DMEditorState{}, fmt.Errorf("reading editor state: %w", err)
	}

	var state entities.DMEditorState
	if err := json.Unmarshal(raw, &state); err != nil {
		return entities.DMEditorState{}, fmt.Errorf("decoding editor state: %w", err)
	}
	return state, nil
}

// SetEditorState replaces the stored state.
func (s *Store) SetEditorState(ctx context.Context, state entities.DMEditorState) error {
	if state.Pending != nil && state.Status == entities.EditorIdle {
		return fmt.Errorf("editor state for %s: pending content requires a non-idle status", state.GameID)
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding editor state: %w", err)
	}
	if err := s.client.Set(ctx, key(state.GameID), raw, s.ttl).Err(); err != nil {
		s.logger.Error("failed to store editor state", zap.String("game_id", state.GameID), zap.Error(err))
		return fmt.Errorf("storing editor state: %w", err)
	}
	return nil
}

// ClearEditorState resets a game's editor to idle.
func (s *Store) ClearEditorState(ctx context.Context, gameID string) error {
	if err := s.client.Del(ctx, key(gameID)).Err(); err != nil {
		return fmt.Errorf("clearing editor state: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// Overlay returns base with its editor state methods served by s.
func (s *Store) Overlay(base ports.Store) ports.Store {
	return &overlay{Store: base, editor: s}
}

type overlay struct {
	ports.Store
	editor *Store
}

func (o *overlay) GetEditorState(ctx context.Context, gameID string) (entities.DMEditorState, error) {
	return o.editor.GetEditorState(ctx, gameID)
}

func (o *overlay) SetEditorState(ctx context.Context, state entities.DMEditorState) error {
	return o.editor.SetEditorState(ctx, state)
}

func (o *overlay) ClearEditorState(ctx context.Context, gameID string) error {
	return o.editor.ClearEditorState(ctx, gameID)
}

func (o *overlay) Close() error {
	return errors.Join(o.editor.Close(), o.Store.Close())
}
