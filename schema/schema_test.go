package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileNil(t *testing.T) {
	s, err := Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
}

func TestValidate(t *testing.T) {
	doc := Object(map[string]*Property{
		"query": String("Search query"),
		"limit": Integer("Max results").Min(1).Max(100),
	}, "query")

	s, err := Compile(doc)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   map[string]any
		wantErr bool
	}{
		{
			name:  "valid full",
			input: map[string]any{"query": "weather", "limit": 5.0},
		},
		{
			name:  "valid required only",
			input: map[string]any{"query": "weather"},
		},
		{
			name:    "missing required",
			input:   map[string]any{"limit": 5.0},
			wantErr: true,
		},
		{
			name:    "wrong type",
			input:   map[string]any{"query": 12.0},
			wantErr: true,
		},
		{
			name:    "below minimum",
			input:   map[string]any{"query": "weather", "limit": 0.0},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.input)
			if tt.wantErr {
				var verr *ValidationError
				require.Error(t, err)
				assert.ErrorAs(t, err, &verr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBuilders(t *testing.T) {
	doc := Object(map[string]*Property{
		"mode":  String("Mode").Enum("fast", "thorough").Default("fast"),
		"tags":  Array("Tags", map[string]any{"type": "string"}),
		"score": Number("Score").Min(0).Max(1),
		"dry":   Boolean("Dry run"),
	})

	props := doc["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, "fast", props["mode"].(map[string]any)["default"])
	assert.Equal(t, "array", props["tags"].(map[string]any)["type"])
	_, hasRequired := doc["required"]
	assert.False(t, hasRequired)
}
