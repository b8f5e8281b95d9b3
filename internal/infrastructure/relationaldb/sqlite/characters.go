package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// SaveCharacter inserts or updates a character.
func (r *Repository) SaveCharacter(ctx context.Context, c *entities.Character) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	sheet := c.Sheet
	if sheet == nil {
		sheet = map[string]any{}
	}
	sheetJSON, err := json.Marshal(sheet)
	if err != nil {
		return fmt.Errorf("marshaling sheet: %w", err)
	}

	query := `
		INSERT INTO characters (id, game_id, name, normalized_name, avatar_url, in_party, sheet)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			avatar_url = excluded.avatar_url,
			in_party = excluded.in_party,
			sheet = excluded.sheet
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.GameID,
		c.Name,
		entities.NormalizeName(c.Name),
		c.AvatarURL,
		c.InParty,
		string(sheetJSON),
	)
	if err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	return nil
}

const characterColumns = `id, game_id, name, avatar_url, in_party, sheet`

func scanCharacter(row scanner) (*entities.Character, error) {
	var (
		c     entities.Character
		sheet string
	)
	if err := row.Scan(&c.ID, &c.GameID, &c.Name, &c.AvatarURL, &c.InParty, &sheet); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sheet), &c.Sheet); err != nil {
		return nil, fmt.Errorf("decoding sheet of %s: %w", c.ID, err)
	}
	if len(c.Sheet) == 0 {
		c.Sheet = nil
	}
	return &c, nil
}

// ListCharacters returns a game's characters ordered by name.
func (r *Repository) ListCharacters(ctx context.Context, gameID string) ([]entities.Character, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE game_id = ? ORDER BY normalized_name`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying characters: %w", err)
	}
	defer rows.Close()

	var result []entities.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// FindCharacterByName finds a character by name (case-insensitive).
func (r *Repository) FindCharacterByName(ctx context.Context, gameID, name string) (*entities.Character, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE game_id = ? AND normalized_name = ?`,
		gameID, entities.NormalizeName(name))
	c, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning character: %w", err)
	}
	return c, nil
}

// SaveTrait inserts or updates a trait.
func (r *Repository) SaveTrait(ctx context.Context, t *entities.Trait) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	if t.Status == "" {
		t.Status = entities.TraitActive
	}
	query := `
		INSERT INTO traits (id, game_id, character_id, name, description, status, acquired_turn)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			acquired_turn = excluded.acquired_turn
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.GameID,
		t.CharacterID,
		t.Name,
		t.Description,
		string(t.Status),
		t.AcquiredAt,
	)
	if err != nil {
		return fmt.Errorf("saving trait: %w", err)
	}
	return nil
}

// ListTraits returns every trait in a game.
func (r *Repository) ListTraits(ctx context.Context, gameID string) ([]entities.Trait, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, game_id, character_id, name, description, status, acquired_turn
		FROM traits WHERE game_id = ?
		ORDER BY character_id, acquired_turn, name
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying traits: %w", err)
	}
	defer rows.Close()

	var result []entities.Trait
	for rows.Next() {
		var (
			t      entities.Trait
			status string
		)
		if err := rows.Scan(&t.ID, &t.GameID, &t.CharacterID, &t.Name, &t.Description, &status, &t.AcquiredAt); err != nil {
			return nil, fmt.Errorf("scanning trait: %w", err)
		}
		t.Status = entities.TraitStatus(status)
		result = append(result, t)
	}
	return result, rows.Err()
}

// SaveArea inserts or updates an area.
func (r *Repository) SaveArea(ctx context.Context, a *entities.Area) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO areas (id, game_id, name, description) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description
	`, a.ID, a.GameID, a.Name, a.Description)
	if err != nil {
		return fmt.Errorf("saving area: %w", err)
	}
	return nil
}

// FindArea finds an area by ID.
func (r *Repository) FindArea(ctx context.Context, id string) (*entities.Area, error) {
	var a entities.Area
	err := r.db.QueryRowContext(ctx, `SELECT id, game_id, name, description FROM areas WHERE id = ?`, id).
		Scan(&a.ID, &a.GameID, &a.Name, &a.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning area: %w", err)
	}
	return &a, nil
}

// SaveScene inserts or updates a scene.
func (r *Repository) SaveScene(ctx context.Context, s *entities.Scene) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scenes (id, game_id, area_id, name, description) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET area_id = excluded.area_id, name = excluded.name, description = excluded.description
	`, s.ID, s.GameID, s.AreaID, s.Name, s.Description)
	if err != nil {
		return fmt.Errorf("saving scene: %w", err)
	}
	return nil
}

// FindScene finds a scene by ID.
func (r *Repository) FindScene(ctx context.Context, id string) (*entities.Scene, error) {
	var s entities.Scene
	err := r.db.QueryRowContext(ctx, `SELECT id, game_id, area_id, name, description FROM scenes WHERE id = ?`, id).
		Scan(&s.ID, &s.GameID, &s.AreaID, &s.Name, &s.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scene: %w", err)
	}
	return &s, nil
}
