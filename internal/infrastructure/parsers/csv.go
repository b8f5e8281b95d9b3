package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVParser parses relationship seeds from CSV.
type CSVParser struct{}

var dimensionColumns = []string{"trust", "respect", "affection", "fear", "resentment", "debt"}

// Parse reads CSV from the reader.
// Expected columns: from, to, then any of trust, respect, affection, fear, resentment, debt.
func (p *CSVParser) Parse(r io.Reader) ([]RawRelationship, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	known := map[string]bool{"from": true, "to": true}
	for _, col := range dimensionColumns {
		known[col] = true
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		if !known[col] {
			return nil, fmt.Errorf("unknown column: %s", col)
		}
		colIndex[col] = i
	}

	for _, col := range []string{"from", "to"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawRelationship, error) {
	var rels []RawRelationship
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		rel, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}

	return rels, nil
}

// parseRecord converts a CSV record to a RawRelationship. Empty cells keep defaults.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawRelationship, error) {
	rel := RawRelationship{
		From:    getColumn(record, colIndex, "from"),
		To:      getColumn(record, colIndex, "to"),
		LineNum: lineNum,
	}

	targets := map[string]**float64{
		"trust":      &rel.Trust,
		"respect":    &rel.Respect,
		"affection":  &rel.Affection,
		"fear":       &rel.Fear,
		"resentment": &rel.Resentment,
		"debt":       &rel.Debt,
	}
	for _, col := range dimensionColumns {
		raw := getColumn(record, colIndex, col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return RawRelationship{}, fmt.Errorf("line %d: invalid %s value %q: %w", lineNum, col, raw, err)
		}
		*targets[col] = &v
	}

	return rel, nil
}

// getColumn safely retrieves a trimmed column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
