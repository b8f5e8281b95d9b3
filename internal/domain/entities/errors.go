package entities

import "errors"

// Contract errors. These indicate a caller bug or stale UI, not a game state,
// and are never retried.
var (
	ErrGameNotFound         = errors.New("Game not found")
	ErrNoContentToAccept    = errors.New("No content to accept")
	ErrNoContentToEdit      = errors.New("No content to edit")
	ErrEmptyContent         = errors.New("content is required")
	ErrContentPending       = errors.New("content is already pending review")
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrUnknownAction        = errors.New("unknown editor action")
	ErrInvalidPlaybackMode  = errors.New("invalid playback mode")
	ErrInvalidView          = errors.New("invalid view")
	ErrCharacterRequired    = errors.New("character id is required for player view")
	ErrCharacterNotFound    = errors.New("character not found")
	ErrInvalidDimension     = errors.New("invalid relationship dimension")
	ErrInvalidOperator      = errors.New("invalid threshold operator")
	ErrDimensionOutOfRange  = errors.New("relationship dimension must be within [0, 1]")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrProposalResolved     = errors.New("proposal already resolved")
	ErrCharacterExists      = errors.New("character already exists")
	ErrInvalidInput         = errors.New("invalid input")
)
