package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidIDs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		v, err := New()
		require.NoError(t, err)
		assert.Len(t, v, Length)
		assert.True(t, Valid(v))
		_, dup := seen[v]
		assert.False(t, dup)
		seen[v] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	tests := map[string]bool{
		"V1StGXR8_Z5jdHi": true,
		"tag-5":           true,
		"":                false,
		"../etc/passwd":   false,
		"a/b":             false,
		"spaces are bad":  false,
		"dot.dot":         false,
	}
	for input, want := range tests {
		assert.Equal(t, want, Valid(input), input)
	}
}
