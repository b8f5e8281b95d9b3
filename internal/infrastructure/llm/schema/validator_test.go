package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["content"],
  "properties": {
    "content": {"type": "string", "minLength": 1},
    "eventType": {"type": "string", "enum": ["narration", "dialogue"]}
  }
}`

func TestNewValidator(t *testing.T) {
	_, err := NewValidator([]byte(testSchema))
	require.NoError(t, err)

	_, err = NewValidator([]byte(`{"type": 12}`))
	require.Error(t, err)
}

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator([]byte(testSchema))
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid", input: `{"content": "The gate creaks.", "eventType": "narration"}`},
		{name: "missing content", input: `{"eventType": "narration"}`, wantErr: "content"},
		{name: "empty content", input: `{"content": ""}`, wantErr: "validation failed"},
		{name: "bad enum", input: `{"content": "x", "eventType": "song"}`, wantErr: "eventType"},
		{name: "not json", input: `The gate creaks.`, wantErr: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.input))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
