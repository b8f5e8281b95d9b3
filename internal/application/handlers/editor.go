package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/services"
)

// EditorHandler handles the DM editorial cycle and playback controls.
type EditorHandler struct {
	engine   *services.EditorialEngine
	playback *services.PlaybackController
}

// NewEditorHandler creates a new EditorHandler.
func NewEditorHandler(engine *services.EditorialEngine, playback *services.PlaybackController) *EditorHandler {
	return &EditorHandler{
		engine:   engine,
		playback: playback,
	}
}

// ActionInput is a DM action as received from a client.
type ActionInput struct {
	Type      string   `json:"type"`
	Content   string   `json:"content,omitempty"`
	Guidance  string   `json:"guidance,omitempty"`
	EventType string   `json:"event_type,omitempty"`
	Speaker   string   `json:"speaker,omitempty"`
	SceneID   string   `json:"scene_id,omitempty"`
	Witnesses []string `json:"witnesses,omitempty"`
}

// PlaybackCommand names a playback control.
type PlaybackCommand string

// Playback commands.
const (
	PlaybackPlay  PlaybackCommand = "play"
	PlaybackStep  PlaybackCommand = "step"
	PlaybackPause PlaybackCommand = "pause"
	PlaybackStop  PlaybackCommand = "stop"
)

// PlaybackResult reports the mode after a playback command and any
// generation it started.
type PlaybackResult struct {
	Mode       entities.PlaybackMode       `json:"mode"`
	Generation *services.GenerationOutcome `json:"generation,omitempty"`
}

// HandleGenerate requests the next event for a game.
func (h *EditorHandler) HandleGenerate(ctx context.Context, gameID string) (*services.GenerationOutcome, error) {
	return h.engine.GenerateNext(ctx, gameID)
}

// HandleState returns a game's editor state.
func (h *EditorHandler) HandleState(ctx context.Context, gameID string) (entities.DMEditorState, error) {
	return h.engine.EditorState(ctx, gameID)
}

// HandleAction parses and applies a DM action. The action type is case-insensitive.
// Event types are free-form; unknown ones are stored as given.
func (h *EditorHandler) HandleAction(ctx context.Context, gameID string, input ActionInput) (*services.SubmitResult, error) {
	action, err := parseAction(input)
	if err != nil {
		return nil, err
	}
	return h.engine.Submit(ctx, gameID, action)
}

// HandlePlayback applies a playback command.
func (h *EditorHandler) HandlePlayback(ctx context.Context, gameID string, command PlaybackCommand) (*PlaybackResult, error) {
	var (
		outcome *services.GenerationOutcome
		mode    entities.PlaybackMode
		err     error
	)
	switch PlaybackCommand(strings.ToLower(string(command))) {
	case PlaybackPlay:
		mode = entities.PlaybackAuto
		outcome, err = h.playback.Play(ctx, gameID)
	case PlaybackStep:
		mode = entities.PlaybackStepping
		outcome, err = h.playback.Step(ctx, gameID)
	case PlaybackPause:
		mode = entities.PlaybackPaused
		err = h.playback.Pause(ctx, gameID)
	case PlaybackStop:
		mode = entities.PlaybackStopped
		err = h.playback.Stop(ctx, gameID)
	default:
		return nil, fmt.Errorf("%w: %q (valid: play, step, pause, stop)", entities.ErrInvalidPlaybackMode, command)
	}
	if err != nil {
		return nil, err
	}
	return &PlaybackResult{Mode: mode, Generation: outcome}, nil
}

func parseAction(input ActionInput) (entities.Action, error) {
	action := entities.Action{
		Type:      entities.ActionType(strings.ToUpper(strings.TrimSpace(input.Type))),
		Content:   input.Content,
		Guidance:  input.Guidance,
		Speaker:   input.Speaker,
		SceneID:   input.SceneID,
		Witnesses: input.Witnesses,
	}
	switch action.Type {
	case entities.ActionAccept, entities.ActionEdit, entities.ActionRegenerate, entities.ActionInject:
	default:
		return entities.Action{}, fmt.Errorf("%w: %q (valid: ACCEPT, EDIT, REGENERATE, INJECT)", entities.ErrUnknownAction, input.Type)
	}
	if input.EventType != "" {
		action.EventType = entities.EventType(strings.ToLower(strings.TrimSpace(input.EventType)))
	}
	return action, nil
}
