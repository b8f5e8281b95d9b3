package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// PlaybackController changes a game's playback mode. A change never cancels
// pending content; it only decides what happens once that content is resolved.
type PlaybackController struct {
	engine *EditorialEngine
}

// NewPlaybackController creates a PlaybackController.
func NewPlaybackController(engine *EditorialEngine) *PlaybackController {
	return &PlaybackController{engine: engine}
}

// SetMode stores a new mode and broadcasts the updated game.
func (c *PlaybackController) SetMode(ctx context.Context, gameID string, mode entities.PlaybackMode) error {
	if _, err := entities.ParsePlaybackMode(string(mode)); err != nil {
		return err
	}
	e := c.engine
	return e.withGameLock(gameID, func() error {
		game, err := e.findGame(ctx, gameID)
		if err != nil {
			return err
		}
		if game.PlaybackMode == mode {
			return nil
		}
		if err := e.store.SetPlaybackMode(ctx, gameID, mode); err != nil {
			return fmt.Errorf("setting playback mode: %w", err)
		}
		e.logger.Info("playback mode changed",
			zap.String("game_id", gameID),
			zap.String("from", string(game.PlaybackMode)),
			zap.String("to", string(mode)))
		e.broadcastSnapshot(ctx, gameID)
		return nil
	})
}

// Play switches to auto and starts a generation when the editor is free.
func (c *PlaybackController) Play(ctx context.Context, gameID string) (*GenerationOutcome, error) {
	if err := c.SetMode(ctx, gameID, entities.PlaybackAuto); err != nil {
		return nil, err
	}
	return c.engine.chain(ctx, gameID)
}

// Step switches to stepping and generates one event when the editor is free.
func (c *PlaybackController) Step(ctx context.Context, gameID string) (*GenerationOutcome, error) {
	if err := c.SetMode(ctx, gameID, entities.PlaybackStepping); err != nil {
		return nil, err
	}
	state, err := c.engine.EditorState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !state.IsIdle() {
		return nil, nil
	}
	return c.engine.GenerateNext(ctx, gameID)
}

// Pause stops chaining after the current content is resolved.
func (c *PlaybackController) Pause(ctx context.Context, gameID string) error {
	return c.SetMode(ctx, gameID, entities.PlaybackPaused)
}

// Stop ends playback.
func (c *PlaybackController) Stop(ctx context.Context, gameID string) error {
	return c.SetMode(ctx, gameID, entities.PlaybackStopped)
}
