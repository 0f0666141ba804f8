package act

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name    string
		actions []ActionSpec
		want    string
	}{
		{
			name:    "empty plan",
			actions: nil,
			want:    "",
		},
		{
			name:    "single action uses query",
			actions: []ActionSpec{{Type: "web_search", Query: "weather"}},
			want:    "web_search:weather",
		},
		{
			name: "multiple actions joined in order",
			actions: []ActionSpec{
				{Type: "web_search", Query: "weather"},
				{Type: "memory", Description: "recall prefs"},
			},
			want: "web_search:weather | memory:recall prefs",
		},
		{
			name:    "intent falls back to text",
			actions: []ActionSpec{{Type: "notify", Text: "done"}},
			want:    "notify:done",
		},
		{
			name:    "missing intent keeps type prefix",
			actions: []ActionSpec{{Type: "noop"}},
			want:    "noop:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fingerprint(tt.actions))
		})
	}
}

func TestTypeSet(t *testing.T) {
	actions := []ActionSpec{
		{Type: "web_search", Query: "a"},
		{Type: "web_search", Query: "b"},
		{Type: "memory"},
	}

	types := TypeSet(actions)
	assert.Len(t, types, 2)
	assert.True(t, types["web_search"])
	assert.True(t, types["memory"])
}

func TestTypesOverlap(t *testing.T) {
	a := map[string]bool{"web_search": true, "memory": true}
	b := map[string]bool{"memory": true}
	c := map[string]bool{"notify": true}

	assert.True(t, TypesOverlap(a, b))
	assert.True(t, TypesOverlap(b, a))
	assert.False(t, TypesOverlap(a, c))
	assert.False(t, TypesOverlap(nil, a))
}

func TestFingerprintDigest(t *testing.T) {
	fp := "web_search:weather | memory:recall prefs"

	assert.Equal(t, FingerprintDigest(fp), FingerprintDigest(fp), "digest must be stable")
	assert.NotEqual(t, FingerprintDigest(fp), FingerprintDigest(fp+"!"))
	assert.NotZero(t, FingerprintDigest(fp))
}
