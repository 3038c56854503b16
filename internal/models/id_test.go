package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLinkID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewLinkID()
		require.NoError(t, err)
		assert.Len(t, id, 10)
		assert.Equal(t, id, NormalizeLinkID(id))
		for _, c := range id {
			assert.True(t, strings.ContainsRune(linkIDAlphabet, c), "unexpected character %q", c)
		}
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNormalizeLinkID(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeLinkID("  ABC123 "))
	assert.Equal(t, "", NormalizeLinkID("   "))
}
