package entities

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRelationship_Defaults(t *testing.T) {
	rel := NewRelationship("g1", "a", "b")

	assert.Equal(t, 0.5, rel.Trust)
	assert.Equal(t, 0.5, rel.Respect)
	assert.Equal(t, 0.5, rel.Affection)
	assert.Equal(t, 0.0, rel.Fear)
	assert.Equal(t, 0.0, rel.Resentment)
	assert.Equal(t, 0.0, rel.Debt)
	require.NoError(t, rel.Validate())
}

func TestRelationship_Set(t *testing.T) {
	tests := []struct {
		name    string
		dim     Dimension
		value   float64
		wantErr bool
	}{
		{name: "lower bound", dim: DimTrust, value: 0, wantErr: false},
		{name: "upper bound", dim: DimFear, value: 1, wantErr: false},
		{name: "midpoint", dim: DimDebt, value: 0.42, wantErr: false},
		{name: "negative rejected", dim: DimRespect, value: -0.01, wantErr: true},
		{name: "above one rejected", dim: DimAffection, value: 1.01, wantErr: true},
		{name: "NaN rejected", dim: DimResentment, value: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := NewRelationship("g1", "a", "b")
			before := rel.Get(tt.dim)

			err := rel.Set(tt.dim, tt.value)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrDimensionOutOfRange)
				assert.Equal(t, before, rel.Get(tt.dim), "rejected write must not modify the record")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, rel.Get(tt.dim))
		})
	}
}

func TestParseDimension(t *testing.T) {
	for _, d := range AllDimensions {
		parsed, err := ParseDimension(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}

	_, err := ParseDimension("trust; DROP TABLE relationships")
	require.ErrorIs(t, err, ErrInvalidDimension)
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator(">=")
	require.NoError(t, err)
	assert.Equal(t, OpGreaterOrEqual, op)
	assert.True(t, op.Compare(0.7, 0.7))
	assert.False(t, op.Compare(0.69, 0.7))

	_, err = ParseOperator("LIKE")
	require.ErrorIs(t, err, ErrInvalidOperator)
}

func TestDimension_JSON(t *testing.T) {
	change := RelationshipChange{FromID: "a", ToID: "b", Dimension: DimResentment, Delta: 0.1}

	data, err := json.Marshal(change)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dimension":"resentment"`)

	var decoded RelationshipChange
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, DimResentment, decoded.Dimension)
}

func TestPerception(t *testing.T) {
	t.Run("unknown is distinct from zero", func(t *testing.T) {
		zero := Known(0)
		unknown := Unknown()

		assert.True(t, zero.IsKnown())
		assert.False(t, unknown.IsKnown())
		assert.Equal(t, 0.0, zero.Or(0.9))
		assert.Equal(t, 0.9, unknown.Or(0.9))
	})

	t.Run("json null round trip", func(t *testing.T) {
		p := PerceivedRelationship{PerceivedTrust: Known(0.25), PerceivedRespect: Unknown()}

		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"perceived_trust":0.25`)
		assert.Contains(t, string(data), `"perceived_respect":null`)

		var decoded PerceivedRelationship
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, Known(0.25), decoded.PerceivedTrust)
		assert.False(t, decoded.PerceivedRespect.IsKnown())
	})

	t.Run("fear cannot be perceived", func(t *testing.T) {
		var p PerceivedRelationship
		err := p.Set(DimFear, Known(0.5))
		require.ErrorIs(t, err, ErrInvalidDimension)
	})
}

func TestDMEditorState_CommitContent(t *testing.T) {
	pending := "Text A"
	edited := "Text B"

	t.Run("nothing pending", func(t *testing.T) {
		s := IdleEditorState("g1")
		_, _, ok := s.CommitContent()
		assert.False(t, ok)
	})

	t.Run("pending only", func(t *testing.T) {
		s := DMEditorState{Pending: &pending, Status: EditorAccepting}
		content, original, ok := s.CommitContent()
		require.True(t, ok)
		assert.Equal(t, "Text A", content)
		assert.Empty(t, original)
	})

	t.Run("edited wins and keeps original", func(t *testing.T) {
		s := DMEditorState{Pending: &pending, EditedContent: &edited, Status: EditorEditing}
		content, original, ok := s.CommitContent()
		require.True(t, ok)
		assert.Equal(t, "Text B", content)
		assert.Equal(t, "Text A", original)
	})
}

func TestIsPublicTrait(t *testing.T) {
	assert.True(t, IsPublicTrait("Legendary"))
	assert.True(t, IsPublicTrait(" feared "))
	assert.False(t, IsPublicTrait("cowardly"))
	assert.False(t, IsPublicTrait("secret_heir"))
}
