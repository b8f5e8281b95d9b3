// Package parsers reads relationship seed files for importing into a game.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawRelationship is a relationship parsed from an external source before
// validation. Nil dimensions keep their defaults.
type RawRelationship struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Trust      *float64 `json:"trust,omitempty"`
	Respect    *float64 `json:"respect,omitempty"`
	Affection  *float64 `json:"affection,omitempty"`
	Fear       *float64 `json:"fear,omitempty"`
	Resentment *float64 `json:"resentment,omitempty"`
	Debt       *float64 `json:"debt,omitempty"`
	LineNum    int      `json:"-"` // Line number in source file (set by parser)
}

// Dimensions returns the set dimensions keyed by name.
func (r RawRelationship) Dimensions() map[string]float64 {
	dims := make(map[string]float64, 6)
	for name, v := range map[string]*float64{
		"trust":      r.Trust,
		"respect":    r.Respect,
		"affection":  r.Affection,
		"fear":       r.Fear,
		"resentment": r.Resentment,
		"debt":       r.Debt,
	} {
		if v != nil {
			dims[name] = *v
		}
	}
	return dims
}

// Parser reads relationship seeds from a stream.
type Parser interface {
	Parse(r io.Reader) ([]RawRelationship, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	return ForFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
}
