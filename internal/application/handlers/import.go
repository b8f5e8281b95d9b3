package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "csv", or "auto"
	DryRun bool   // Validate without saving
}

// ImportError describes one rejected row.
type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// HandleImport seeds relationships from a JSON or CSV file. Each row is merged
// onto the stored relationship (or the defaults), so unset dimensions keep
// their current values. Invalid rows are reported and skipped.
func (h *RelationshipHandler) HandleImport(ctx context.Context, gameID, filePath string, opts ImportOptions) (*ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}
	if parser == nil {
		return nil, fmt.Errorf("%w: unsupported format for file: %s", entities.ErrInvalidInput, filePath)
	}

	game, err := h.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	rows, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing file: %v", entities.ErrInvalidInput, err)
	}

	result := &ImportResult{}
	for _, row := range rows {
		rel, err := h.merge(ctx, game, row)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Line: row.LineNum, Message: err.Error()})
			continue
		}
		if !opts.DryRun {
			if err := h.service.Upsert(ctx, &rel); err != nil {
				return result, fmt.Errorf("line %d: %w", row.LineNum, err)
			}
		}
		result.Imported++
	}

	return result, nil
}

func (h *RelationshipHandler) merge(ctx context.Context, game *entities.Game, row parsers.RawRelationship) (entities.Relationship, error) {
	from, to := strings.TrimSpace(row.From), strings.TrimSpace(row.To)
	if from == "" || to == "" {
		return entities.Relationship{}, errors.New("from and to are required")
	}
	if from == to {
		return entities.Relationship{}, fmt.Errorf("%s cannot relate to itself", from)
	}

	rel, err := h.service.Get(ctx, game.ID, from, to)
	if err != nil {
		return entities.Relationship{}, err
	}
	for name, value := range row.Dimensions() {
		dim, err := entities.ParseDimension(name)
		if err != nil {
			return entities.Relationship{}, err
		}
		if err := rel.Set(dim, value); err != nil {
			return entities.Relationship{}, err
		}
	}
	rel.UpdatedTurn = game.Turn
	return rel, nil
}
