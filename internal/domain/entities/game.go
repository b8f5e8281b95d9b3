// Package entities contains core domain data structures.
package entities

import (
	"fmt"
	"time"
)

// PlaybackMode controls whether accepting content chains into the next generation.
type PlaybackMode string

// Playback modes. Only PlaybackAuto chains generations.
const (
	PlaybackAuto     PlaybackMode = "auto"
	PlaybackPaused   PlaybackMode = "paused"
	PlaybackStepping PlaybackMode = "stepping"
	PlaybackStopped  PlaybackMode = "stopped"
)

// ParsePlaybackMode converts a string to a PlaybackMode.
func ParsePlaybackMode(s string) (PlaybackMode, error) {
	switch PlaybackMode(s) {
	case PlaybackAuto, PlaybackPaused, PlaybackStepping, PlaybackStopped:
		return PlaybackMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid: auto, paused, stepping, stopped)", ErrInvalidPlaybackMode, s)
	}
}

// Game is the per-session world state driven by canonical events.
// Turn only moves forward, once per committed event.
type Game struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	CurrentAreaID  string       `json:"current_area_id,omitempty"`
	CurrentSceneID string       `json:"current_scene_id,omitempty"`
	Turn           int          `json:"turn"`
	PlaybackMode   PlaybackMode `json:"playback_mode"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Area is a location in the world.
type Area struct {
	ID          string `json:"id"`
	GameID      string `json:"game_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Scene is a dramatic unit within an area.
type Scene struct {
	ID          string `json:"id"`
	GameID      string `json:"game_id"`
	AreaID      string `json:"area_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
