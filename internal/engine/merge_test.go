package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name  string
		base  map[string]any
		patch map[string]any
		want  map[string]any
	}{
		{
			name:  "disjoint keys union",
			base:  map[string]any{"a": 1.0},
			patch: map[string]any{"b": 2.0},
			want:  map[string]any{"a": 1.0, "b": 2.0},
		},
		{
			name:  "scalar replaces scalar",
			base:  map[string]any{"payee": "Old Name"},
			patch: map[string]any{"payee": "New Name"},
			want:  map[string]any{"payee": "New Name"},
		},
		{
			name: "nested objects merge recursively",
			base: map[string]any{
				"coa":   map[string]any{"type": "CATEGORY", "id": "7"},
				"notes": "keep",
			},
			patch: map[string]any{
				"coa": map[string]any{"id": "9"},
			},
			want: map[string]any{
				"coa":   map[string]any{"type": "CATEGORY", "id": "9"},
				"notes": "keep",
			},
		},
		{
			name:  "array replaces wholesale",
			base:  map[string]any{"tags": []any{"a", "b"}},
			patch: map[string]any{"tags": []any{"c"}},
			want:  map[string]any{"tags": []any{"c"}},
		},
		{
			name:  "explicit null replaces",
			base:  map[string]any{"notes": "old"},
			patch: map[string]any{"notes": nil},
			want:  map[string]any{"notes": nil},
		},
		{
			name:  "object replaces scalar",
			base:  map[string]any{"coa": "none"},
			patch: map[string]any{"coa": map[string]any{"type": "CATEGORY", "id": "7"}},
			want:  map[string]any{"coa": map[string]any{"type": "CATEGORY", "id": "7"}},
		},
		{
			name:  "null replaces object",
			base:  map[string]any{"coa": map[string]any{"type": "CATEGORY", "id": "7"}},
			patch: map[string]any{"coa": nil},
			want:  map[string]any{"coa": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeepMerge(tt.base, tt.patch))
		})
	}
}

func TestDeepMerge_DoesNotMutateInputs(t *testing.T) {
	base := map[string]any{
		"coa":   map[string]any{"type": "CATEGORY", "id": "7"},
		"payee": "Old",
	}
	patch := map[string]any{
		"coa": map[string]any{"id": "9"},
	}

	_ = DeepMerge(base, patch)

	assert.Equal(t, "7", base["coa"].(map[string]any)["id"])
	assert.Equal(t, map[string]any{"id": "9"}, patch["coa"])
}
