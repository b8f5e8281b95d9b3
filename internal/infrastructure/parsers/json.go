package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses relationship seeds from a JSON array.
type JSONParser struct{}

// Parse reads JSON from the reader. Unknown fields are rejected so that a
// misspelled dimension does not silently keep its default.
func (p *JSONParser) Parse(r io.Reader) ([]RawRelationship, error) {
	var rels []RawRelationship

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&rels); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Array index + 1
	for i := range rels {
		rels[i].LineNum = i + 1
	}

	return rels, nil
}
