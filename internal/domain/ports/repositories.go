// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// GameRepository stores game records. Lookups of missing games return (nil, nil).
type GameRepository interface {
	// CreateGame stores a new game.
	CreateGame(ctx context.Context, game *entities.Game) error

	// FindGameByID returns the game or nil when absent.
	FindGameByID(ctx context.Context, id string) (*entities.Game, error)

	// ListGames lists games, most recently updated first.
	ListGames(ctx context.Context, limit int) ([]entities.Game, error)

	// UpdateGame persists area, scene and name changes.
	UpdateGame(ctx context.Context, game *entities.Game) error

	// SetPlaybackMode changes the stored playback mode.
	SetPlaybackMode(ctx context.Context, id string, mode entities.PlaybackMode) error
}

// EventRepository is the append-only canonical event log.
type EventRepository interface {
	// AppendEvent advances the game's turn by exactly one and stores the event
	// at the new turn as a single atomic step. It sets event.Turn and returns
	// the new turn; on error neither the turn nor the log has changed.
	// Events are never updated.
	AppendEvent(ctx context.Context, event *entities.CanonicalEvent) (int, error)

	// ListEvents returns the last limit events of a game in ascending turn order.
	// A limit <= 0 returns every event.
	ListEvents(ctx context.Context, gameID string, limit int) ([]entities.CanonicalEvent, error)
}

// EditorStateRepository holds the transient per-game editor state.
type EditorStateRepository interface {
	// GetEditorState returns the state, or an idle state when none is stored.
	GetEditorState(ctx context.Context, gameID string) (entities.DMEditorState, error)

	// SetEditorState replaces the stored state.
	SetEditorState(ctx context.Context, state entities.DMEditorState) error

	// ClearEditorState resets the game to idle.
	ClearEditorState(ctx context.Context, gameID string) error
}

// RelationshipRepository stores true relationship dimensions.
// Implementations must reject out-of-range values rather than clamp them.
type RelationshipRepository interface {
	// UpsertRelationship inserts or replaces the record for (game, from, to).
	UpsertRelationship(ctx context.Context, rel *entities.Relationship) error

	// FindRelationship returns the record or nil when absent.
	FindRelationship(ctx context.Context, gameID, fromID, toID string) (*entities.Relationship, error)

	// ListRelationships lists every relationship in a game.
	ListRelationships(ctx context.Context, gameID string) ([]entities.Relationship, error)

	// UpdateDimension sets one dimension, creating the record with defaults if needed.
	UpdateDimension(ctx context.Context, gameID, fromID, toID string, dim entities.Dimension, value float64, turn int) error

	// FindByThreshold lists relationships where dim op value holds.
	FindByThreshold(ctx context.Context, gameID string, dim entities.Dimension, op entities.Operator, value float64) ([]entities.Relationship, error)

	// DeleteRelationshipsByEntity removes every relationship touching an entity.
	DeleteRelationshipsByEntity(ctx context.Context, gameID, entityID string) error
}

// PerceptionRepository stores subjective relationship overlays.
type PerceptionRepository interface {
	// UpsertPerception inserts or replaces the overlay for (game, perceiver, target).
	UpsertPerception(ctx context.Context, p *entities.PerceivedRelationship) error

	// FindPerception returns the overlay or nil when absent.
	FindPerception(ctx context.Context, gameID, perceiverID, targetID string) (*entities.PerceivedRelationship, error)

	// ListPerceptions lists every overlay in a game.
	ListPerceptions(ctx context.Context, gameID string) ([]entities.PerceivedRelationship, error)
}

// CharacterRepository stores characters and their traits.
type CharacterRepository interface {
	// SaveCharacter inserts or updates a character.
	SaveCharacter(ctx context.Context, c *entities.Character) error

	// ListCharacters lists the characters of a game ordered by name.
	ListCharacters(ctx context.Context, gameID string) ([]entities.Character, error)

	// FindCharacterByName finds a character case-insensitively, nil when absent.
	FindCharacterByName(ctx context.Context, gameID, name string) (*entities.Character, error)

	// SaveTrait inserts or updates a trait.
	SaveTrait(ctx context.Context, t *entities.Trait) error

	// ListTraits lists every trait in a game.
	ListTraits(ctx context.Context, gameID string) ([]entities.Trait, error)
}

// LocationRepository stores areas and scenes.
type LocationRepository interface {
	// SaveArea inserts or updates an area.
	SaveArea(ctx context.Context, a *entities.Area) error

	// FindArea returns the area or nil when absent.
	FindArea(ctx context.Context, id string) (*entities.Area, error)

	// SaveScene inserts or updates a scene.
	SaveScene(ctx context.Context, s *entities.Scene) error

	// FindScene returns the scene or nil when absent.
	FindScene(ctx context.Context, id string) (*entities.Scene, error)
}

// ProposalRepository stores evolution proposals awaiting DM review.
type ProposalRepository interface {
	// SaveProposal inserts or updates a proposal.
	SaveProposal(ctx context.Context, p *entities.EvolutionProposal) error

	// FindProposal returns the proposal or nil when absent.
	FindProposal(ctx context.Context, id string) (*entities.EvolutionProposal, error)

	// ListProposals lists a game's proposals with the given status, oldest first.
	// An empty status lists all of them.
	ListProposals(ctx context.Context, gameID string, status entities.ProposalStatus) ([]entities.EvolutionProposal, error)
}

// Store bundles every repository a single backend provides.
type Store interface {
	GameRepository
	EventRepository
	EditorStateRepository
	RelationshipRepository
	PerceptionRepository
	CharacterRepository
	LocationRepository
	ProposalRepository

	// EnsureSchema creates the schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
