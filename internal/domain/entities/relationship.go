package entities

import (
	"fmt"
	"time"
)

// Dimension is one of the six bounded relationship axes.
type Dimension int

// Relationship dimensions.
const (
	DimTrust Dimension = iota
	DimRespect
	DimAffection
	DimFear
	DimResentment
	DimDebt
)

// AllDimensions lists every dimension in storage order.
var AllDimensions = []Dimension{DimTrust, DimRespect, DimAffection, DimFear, DimResentment, DimDebt}

var dimensionNames = [...]string{"trust", "respect", "affection", "fear", "resentment", "debt"}

// String returns the dimension's name, which is also its column name.
func (d Dimension) String() string {
	if d < 0 || int(d) >= len(dimensionNames) {
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Default returns the neutral value for the dimension: the midpoint for
// trust, respect and affection, absence for fear, resentment and debt.
func (d Dimension) Default() float64 {
	switch d {
	case DimTrust, DimRespect, DimAffection:
		return 0.5
	default:
		return 0.0
	}
}

// Perceivable reports whether characters may hold a subjective belief about it.
func (d Dimension) Perceivable() bool {
	return d == DimTrust || d == DimRespect || d == DimAffection
}

// ParseDimension converts a name to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	for i, name := range dimensionNames {
		if name == s {
			return Dimension(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDimension, s)
}

// Operator compares a dimension against a threshold.
type Operator int

// Threshold operators.
const (
	OpLess Operator = iota
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpEqual
)

var operatorSymbols = [...]string{"<", "<=", ">", ">=", "="}

// String returns the SQL symbol for the operator.
func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorSymbols) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorSymbols[o]
}

// Compare applies the operator to a value and threshold.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OpLess:
		return value < threshold
	case OpLessOrEqual:
		return value <= threshold
	case OpGreater:
		return value > threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpEqual:
		return value == threshold
	default:
		return false
	}
}

// ParseOperator converts a symbol to an Operator.
func ParseOperator(s string) (Operator, error) {
	for i, sym := range operatorSymbols {
		if sym == s {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// Relationship is the true, DM-visible relationship from one entity to another.
// A→B and B→A are independent records.
type Relationship struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	FromID      string    `json:"from_id"`
	ToID        string    `json:"to_id"`
	Trust       float64   `json:"trust"`
	Respect     float64   `json:"respect"`
	Affection   float64   `json:"affection"`
	Fear        float64   `json:"fear"`
	Resentment  float64   `json:"resentment"`
	Debt        float64   `json:"debt"`
	UpdatedTurn int       `json:"updated_turn"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRelationship returns a relationship with every dimension at its default.
func NewRelationship(gameID, fromID, toID string) Relationship {
	return Relationship{
		GameID:    gameID,
		FromID:    fromID,
		ToID:      toID,
		Trust:     DimTrust.Default(),
		Respect:   DimRespect.Default(),
		Affection: DimAffection.Default(),
	}
}

// Get returns the value of a dimension.
func (r *Relationship) Get(d Dimension) float64 {
	switch d {
	case DimTrust:
		return r.Trust
	case DimRespect:
		return r.Respect
	case DimAffection:
		return r.Affection
	case DimFear:
		return r.Fear
	case DimResentment:
		return r.Resentment
	case DimDebt:
		return r.Debt
	default:
		return 0
	}
}

// Set assigns a dimension after checking its range. Out-of-range values are
// rejected, never clamped.
func (r *Relationship) Set(d Dimension, v float64) error {
	if err := ValidateDimensionValue(d, v); err != nil {
		return err
	}
	switch d {
	case DimTrust:
		r.Trust = v
	case DimRespect:
		r.Respect = v
	case DimAffection:
		r.Affection = v
	case DimFear:
		r.Fear = v
	case DimResentment:
		r.Resentment = v
	case DimDebt:
		r.Debt = v
	default:
		return fmt.Errorf("%w: %v", ErrInvalidDimension, d)
	}
	return nil
}

// Validate checks every dimension is within [0, 1].
func (r *Relationship) Validate() error {
	for _, d := range AllDimensions {
		if err := ValidateDimensionValue(d, r.Get(d)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDimensionValue rejects values outside [0, 1], including NaN.
func ValidateDimensionValue(d Dimension, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %s=%v", ErrDimensionOutOfRange, d, v)
	}
	return nil
}

// MarshalText encodes the dimension by name.
func (d Dimension) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(dimensionNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, int(d))
	}
	return []byte(dimensionNames[d]), nil
}

// UnmarshalText decodes a dimension name.
func (d *Dimension) UnmarshalText(text []byte) error {
	parsed, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
