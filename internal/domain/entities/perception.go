package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Perception is a character's belief about one dimension: either a known
// value or unknown. Unknown is distinct from zero.
type Perception struct {
	value float64
	known bool
}

// Known returns a perception holding v.
func Known(v float64) Perception { return Perception{value: v, known: true} }

// Unknown returns a perception with no value.
func Unknown() Perception { return Perception{} }

// Value returns the perceived value and whether it is known.
func (p Perception) Value() (float64, bool) { return p.value, p.known }

// IsKnown reports whether the character holds a belief.
func (p Perception) IsKnown() bool { return p.known }

// Or returns the perceived value when known, else fallback.
func (p Perception) Or(fallback float64) float64 {
	if p.known {
		return p.value
	}
	return fallback
}

// String renders the perception for display.
func (p Perception) String() string {
	if !p.known {
		return "unknown"
	}
	return fmt.Sprintf("%.2f", p.value)
}

// MarshalJSON encodes unknown as null.
func (p Perception) MarshalJSON() ([]byte, error) {
	if !p.known {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON decodes null as unknown.
func (p *Perception) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Unknown()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding perception: %w", err)
	}
	*p = Known(v)
	return nil
}

// PerceivedRelationship is the perceiver's subjective overlay on the
// relationship toward a target. Only trust, respect and affection can be
// perceived; fear, resentment and debt stay DM-only.
type PerceivedRelationship struct {
	GameID             string     `json:"game_id"`
	PerceiverID        string     `json:"perceiver_id"`
	TargetID           string     `json:"target_id"`
	PerceivedTrust     Perception `json:"perceived_trust"`
	PerceivedRespect   Perception `json:"perceived_respect"`
	PerceivedAffection Perception `json:"perceived_affection"`
	LastUpdatedTurn    int        `json:"last_updated_turn"`
}

// Get returns the perception for a perceivable dimension, Unknown otherwise.
func (p *PerceivedRelationship) Get(d Dimension) Perception {
	switch d {
	case DimTrust:
		return p.PerceivedTrust
	case DimRespect:
		return p.PerceivedRespect
	case DimAffection:
		return p.PerceivedAffection
	default:
		return Unknown()
	}
}

// Set records a belief about a perceivable dimension.
func (p *PerceivedRelationship) Set(d Dimension, v Perception) error {
	if val, ok := v.Value(); ok {
		if err := ValidateDimensionValue(d, val); err != nil {
			return err
		}
	}
	switch d {
	case DimTrust:
		p.PerceivedTrust = v
	case DimRespect:
		p.PerceivedRespect = v
	case DimAffection:
		p.PerceivedAffection = v
	default:
		return fmt.Errorf("%w: %s cannot be perceived", ErrInvalidDimension, d)
	}
	return nil
}
