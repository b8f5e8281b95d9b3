package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/domain/services"
)

// RelationshipHandler handles relationship and perception operations.
type RelationshipHandler struct {
	service *services.RelationshipService
	games   ports.GameRepository
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(service *services.RelationshipService, games ports.GameRepository) *RelationshipHandler {
	return &RelationshipHandler{
		service: service,
		games:   games,
	}
}

// HandleSet sets one dimension of the true relationship from one entity to another.
// The change is stamped with the game's current turn.
func (h *RelationshipHandler) HandleSet(ctx context.Context, gameID, fromID, toID, dimension string, value float64) (entities.Relationship, error) {
	dim, err := entities.ParseDimension(dimension)
	if err != nil {
		return entities.Relationship{}, err
	}
	game, err := h.findGame(ctx, gameID)
	if err != nil {
		return entities.Relationship{}, err
	}
	if err := h.service.UpdateDimension(ctx, gameID, fromID, toID, dim, value, game.Turn); err != nil {
		return entities.Relationship{}, err
	}
	return h.service.Get(ctx, gameID, fromID, toID)
}

// HandleGet returns the relationship from one entity to another, with
// defaults when none is stored.
func (h *RelationshipHandler) HandleGet(ctx context.Context, gameID, fromID, toID string) (entities.Relationship, error) {
	return h.service.Get(ctx, gameID, fromID, toID)
}

// HandleList lists every relationship in a game.
func (h *RelationshipHandler) HandleList(ctx context.Context, gameID string) ([]entities.Relationship, error) {
	return h.service.List(ctx, gameID)
}

// HandlePerceive records what a perceiver believes about one dimension.
// The value is a number in [0, 1] or "unknown".
func (h *RelationshipHandler) HandlePerceive(ctx context.Context, gameID, perceiverID, targetID, dimension, value string) (entities.PerceivedRelationship, error) {
	dim, err := entities.ParseDimension(dimension)
	if err != nil {
		return entities.PerceivedRelationship{}, err
	}
	perception, err := parsePerception(value)
	if err != nil {
		return entities.PerceivedRelationship{}, err
	}
	game, err := h.findGame(ctx, gameID)
	if err != nil {
		return entities.PerceivedRelationship{}, err
	}
	if err := h.service.SetPerception(ctx, gameID, perceiverID, targetID, dim, perception, game.Turn); err != nil {
		return entities.PerceivedRelationship{}, err
	}
	return h.service.GetPerception(ctx, gameID, perceiverID, targetID)
}

// HandleLabels computes the labels of the true relationship from one entity to another.
func (h *RelationshipHandler) HandleLabels(ctx context.Context, gameID, fromID, toID string) (services.LabelResult, error) {
	if _, err := h.findGame(ctx, gameID); err != nil {
		return services.LabelResult{}, err
	}
	return h.service.Labels(ctx, gameID, fromID, toID)
}

// HandleFind lists relationships where dimension op value holds.
func (h *RelationshipHandler) HandleFind(ctx context.Context, gameID, dimension, operator string, value float64) ([]entities.Relationship, error) {
	dim, err := entities.ParseDimension(dimension)
	if err != nil {
		return nil, err
	}
	op, err := entities.ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	return h.service.FindByThreshold(ctx, gameID, dim, op, value)
}

// HandleRemoveEntity deletes every relationship and perception touching an entity.
func (h *RelationshipHandler) HandleRemoveEntity(ctx context.Context, gameID, entityID string) error {
	return h.service.RemoveEntity(ctx, gameID, entityID)
}

func (h *RelationshipHandler) findGame(ctx context.Context, gameID string) (*entities.Game, error) {
	game, err := h.games.FindGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("finding game: %w", err)
	}
	if game == nil {
		return nil, entities.ErrGameNotFound
	}
	return game, nil
}

// parsePerception converts a CLI or query value to a Perception.
func parsePerception(s string) (entities.Perception, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown", "?", "null", "":
		return entities.Unknown(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return entities.Perception{}, fmt.Errorf("%w: perception value %q: want a number in [0, 1] or unknown", entities.ErrInvalidInput, s)
	}
	return entities.Known(v), nil
}
