package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/domain/services"
)

// GameHandler handles game setup and read operations.
type GameHandler struct {
	store ports.Store
	state *services.StateService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(store ports.Store, state *services.StateService) *GameHandler {
	return &GameHandler{
		store: store,
		state: state,
	}
}

// CreateGameInput describes a new game. Area and scene are optional.
type CreateGameInput struct {
	Name         string `json:"name"`
	Area         string `json:"area,omitempty"`
	Scene        string `json:"scene,omitempty"`
	PlaybackMode string `json:"playback_mode,omitempty"`
}

// HandleCreate creates a game, with its starting area and scene when named.
func (h *GameHandler) HandleCreate(ctx context.Context, input CreateGameInput) (*entities.Game, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: game name is required", entities.ErrInvalidInput)
	}

	mode := entities.PlaybackPaused
	if input.PlaybackMode != "" {
		parsed, err := entities.ParsePlaybackMode(input.PlaybackMode)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}

	now := time.Now()
	game := &entities.Game{
		ID:           uuid.New().String(),
		Name:         name,
		PlaybackMode: mode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	if input.Area == "" && input.Scene == "" {
		return game, nil
	}
	if input.Area != "" {
		area := &entities.Area{ID: uuid.New().String(), GameID: game.ID, Name: input.Area}
		if err := h.store.SaveArea(ctx, area); err != nil {
			return nil, fmt.Errorf("saving area: %w", err)
		}
		game.CurrentAreaID = area.ID
	}
	if input.Scene != "" {
		scene := &entities.Scene{ID: uuid.New().String(), GameID: game.ID, AreaID: game.CurrentAreaID, Name: input.Scene}
		if err := h.store.SaveScene(ctx, scene); err != nil {
			return nil, fmt.Errorf("saving scene: %w", err)
		}
		game.CurrentSceneID = scene.ID
	}
	if err := h.store.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("updating game: %w", err)
	}
	return game, nil
}

// HandleShow returns the full DM snapshot of a game.
func (h *GameHandler) HandleShow(ctx context.Context, gameID string) (*entities.FullGameState, error) {
	return h.state.Snapshot(ctx, gameID)
}

// HandleList lists games, most recently updated first.
func (h *GameHandler) HandleList(ctx context.Context, limit int) ([]entities.Game, error) {
	games, err := h.store.ListGames(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	return games, nil
}

// HandleView returns a game projected for one audience. An empty view means party.
func (h *GameHandler) HandleView(ctx context.Context, gameID, view, characterID string) (services.FilteredGameState, error) {
	kind := entities.ViewParty
	if view != "" {
		parsed, err := entities.ParseView(view)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}
	return h.state.View(ctx, gameID, kind, characterID)
}

// CharacterInput describes a character to add.
type CharacterInput struct {
	Name      string         `json:"name"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	InParty   bool           `json:"in_party"`
	Sheet     map[string]any `json:"sheet,omitempty"`
}

// HandleAddCharacter adds a character to a game. Names are unique per game,
// case-insensitively.
func (h *GameHandler) HandleAddCharacter(ctx context.Context, gameID string, input CharacterInput) (*entities.Character, error) {
	if err := h.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: character name is required", entities.ErrInvalidInput)
	}

	existing, err := h.store.FindCharacterByName(ctx, gameID, name)
	if err != nil {
		return nil, fmt.Errorf("finding character: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q", entities.ErrCharacterExists, name)
	}

	c := &entities.Character{
		ID:        uuid.New().String(),
		GameID:    gameID,
		Name:      name,
		AvatarURL: input.AvatarURL,
		InParty:   input.InParty,
		Sheet:     input.Sheet,
	}
	if err := h.store.SaveCharacter(ctx, c); err != nil {
		return nil, fmt.Errorf("saving character: %w", err)
	}
	return c, nil
}

// TraitInput describes a trait to attach.
type TraitInput struct {
	Character   string `json:"character"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// HandleAddTrait attaches a trait to a character named by ID or name.
func (h *GameHandler) HandleAddTrait(ctx context.Context, gameID string, input TraitInput) (*entities.Trait, error) {
	game, err := h.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	character, err := h.resolveCharacter(ctx, gameID, input.Character)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: trait name is required", entities.ErrInvalidInput)
	}

	status := entities.TraitActive
	if input.Status != "" {
		status, err = parseTraitStatus(input.Status)
		if err != nil {
			return nil, err
		}
	}

	t := &entities.Trait{
		ID:          uuid.New().String(),
		GameID:      gameID,
		CharacterID: character.ID,
		Name:        name,
		Description: input.Description,
		Status:      status,
		AcquiredAt:  game.Turn,
	}
	if err := h.store.SaveTrait(ctx, t); err != nil {
		return nil, fmt.Errorf("saving trait: %w", err)
	}
	return t, nil
}

func (h *GameHandler) findGame(ctx context.Context, gameID string) (*entities.Game, error) {
	game, err := h.store.FindGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("finding game: %w", err)
	}
	if game == nil {
		return nil, entities.ErrGameNotFound
	}
	return game, nil
}

func (h *GameHandler) requireGame(ctx context.Context, gameID string) error {
	_, err := h.findGame(ctx, gameID)
	return err
}

// resolveCharacter accepts either a character ID or a name.
func (h *GameHandler) resolveCharacter(ctx context.Context, gameID, ref string) (*entities.Character, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: character is required", entities.ErrInvalidInput)
	}
	characters, err := h.store.ListCharacters(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	for i := range characters {
		if characters[i].ID == ref {
			return &characters[i], nil
		}
	}
	c, err := h.store.FindCharacterByName(ctx, gameID, ref)
	if err != nil {
		return nil, fmt.Errorf("finding character: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrCharacterNotFound, ref)
	}
	return c, nil
}

func parseTraitStatus(s string) (entities.TraitStatus, error) {
	switch entities.TraitStatus(s) {
	case entities.TraitActive, entities.TraitDormant, entities.TraitRemoved, entities.TraitProposed:
		return entities.TraitStatus(s), nil
	default:
		return "", fmt.Errorf("%w: trait status %q (valid: active, dormant, removed, proposed)", entities.ErrInvalidInput, s)
	}
}
