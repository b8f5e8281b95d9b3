package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// RelationshipService manages true relationships and perception overlays.
type RelationshipService struct {
	relationships ports.RelationshipRepository
	perceptions   ports.PerceptionRepository
	// adjusting serializes read-modify-write updates per game.
	adjusting *gameLocks
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(relationships ports.RelationshipRepository, perceptions ports.PerceptionRepository) *RelationshipService {
	return &RelationshipService{
		relationships: relationships,
		perceptions:   perceptions,
		adjusting:     newGameLocks(),
	}
}

// Get returns the relationship from one entity to another. A missing record
// is returned with default dimensions and is not persisted.
func (s *RelationshipService) Get(ctx context.Context, gameID, fromID, toID string) (entities.Relationship, error) {
	rel, err := s.relationships.FindRelationship(ctx, gameID, fromID, toID)
	if err != nil {
		return entities.Relationship{}, fmt.Errorf("finding relationship: %w", err)
	}
	if rel == nil {
		return entities.NewRelationship(gameID, fromID, toID), nil
	}
	return *rel, nil
}

// Upsert validates and stores a full relationship record.
func (s *RelationshipService) Upsert(ctx context.Context, rel *entities.Relationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	rel.UpdatedAt = time.Now()
	if err := s.relationships.UpsertRelationship(ctx, rel); err != nil {
		return fmt.Errorf("saving relationship: %w", err)
	}
	return nil
}

// UpdateDimension sets one dimension. Values outside [0, 1] are rejected.
func (s *RelationshipService) UpdateDimension(ctx context.Context, gameID, fromID, toID string, dim entities.Dimension, value float64, turn int) error {
	if err := entities.ValidateDimensionValue(dim, value); err != nil {
		return err
	}
	if err := s.relationships.UpdateDimension(ctx, gameID, fromID, toID, dim, value, turn); err != nil {
		return fmt.Errorf("updating %s: %w", dim, err)
	}
	return nil
}

// Adjust shifts one dimension by delta, saturating at the bounds, and returns
// the new value. Evolution deltas are relative, so they clamp instead of failing.
func (s *RelationshipService) Adjust(ctx context.Context, gameID, fromID, toID string, dim entities.Dimension, delta float64, turn int) (float64, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return 0, fmt.Errorf("%w: delta %v", entities.ErrDimensionOutOfRange, delta)
	}
	unlock := s.adjusting.lock(gameID)
	defer unlock()

	rel, err := s.Get(ctx, gameID, fromID, toID)
	if err != nil {
		return 0, err
	}
	value := math.Max(0, math.Min(1, rel.Get(dim)+delta))
	if err := s.UpdateDimension(ctx, gameID, fromID, toID, dim, value, turn); err != nil {
		return 0, err
	}
	return value, nil
}

// FindByThreshold lists relationships whose dimension satisfies op against value.
func (s *RelationshipService) FindByThreshold(ctx context.Context, gameID string, dim entities.Dimension, op entities.Operator, value float64) ([]entities.Relationship, error) {
	if err := entities.ValidateDimensionValue(dim, value); err != nil {
		return nil, err
	}
	rels, err := s.relationships.FindByThreshold(ctx, gameID, dim, op, value)
	if err != nil {
		return nil, fmt.Errorf("finding relationships where %s %s %v: %w", dim, op, value, err)
	}
	return rels, nil
}

// List returns every relationship in a game.
func (s *RelationshipService) List(ctx context.Context, gameID string) ([]entities.Relationship, error) {
	rels, err := s.relationships.ListRelationships(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	return rels, nil
}

// RemoveEntity deletes every relationship touching an entity.
func (s *RelationshipService) RemoveEntity(ctx context.Context, gameID, entityID string) error {
	if err := s.relationships.DeleteRelationshipsByEntity(ctx, gameID, entityID); err != nil {
		return fmt.Errorf("deleting relationships of %s: %w", entityID, err)
	}
	return nil
}

// GetPerception returns the perceiver's overlay, with every dimension Unknown
// when none is stored.
func (s *RelationshipService) GetPerception(ctx context.Context, gameID, perceiverID, targetID string) (entities.PerceivedRelationship, error) {
	p, err := s.perceptions.FindPerception(ctx, gameID, perceiverID, targetID)
	if err != nil {
		return entities.PerceivedRelationship{}, fmt.Errorf("finding perception: %w", err)
	}
	if p == nil {
		return entities.PerceivedRelationship{GameID: gameID, PerceiverID: perceiverID, TargetID: targetID}, nil
	}
	return *p, nil
}

// SetPerception records what the perceiver believes about one dimension.
// Passing entities.Unknown() forgets the belief.
func (s *RelationshipService) SetPerception(ctx context.Context, gameID, perceiverID, targetID string, dim entities.Dimension, value entities.Perception, turn int) error {
	p, err := s.GetPerception(ctx, gameID, perceiverID, targetID)
	if err != nil {
		return err
	}
	if err := p.Set(dim, value); err != nil {
		return err
	}
	p.LastUpdatedTurn = turn
	if err := s.perceptions.UpsertPerception(ctx, &p); err != nil {
		return fmt.Errorf("saving perception: %w", err)
	}
	return nil
}

// Labels computes the label set for the true relationship from one entity to another.
func (s *RelationshipService) Labels(ctx context.Context, gameID, fromID, toID string) (LabelResult, error) {
	rel, err := s.Get(ctx, gameID, fromID, toID)
	if err != nil {
		return LabelResult{}, err
	}
	return ComputeLabels(rel), nil
}
