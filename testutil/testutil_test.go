package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueKeys(t *testing.T) {
	rng := NewRNG(4711)

	keys := rng.UniqueKeys(1000)

	assert.Len(t, keys, 1000)
	seen := make(map[uint32]bool)
	for _, k := range keys {
		assert.NotZero(t, k)
		assert.False(t, seen[k], "duplicate key %d", k)
		seen[k] = true
	}
}

func TestWords(t *testing.T) {
	rng := NewRNG(4711)

	words := rng.Words(100, 3, 8)

	assert.Len(t, words, 100)
	for _, w := range words {
		assert.GreaterOrEqual(t, len(w), 3)
		assert.LessOrEqual(t, len(w), 8)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniqueKeys(10)

	rng.Reset()
	v2 := rng.UniqueKeys(10)

	assert.Equal(t, v1, v2)
}

func TestZipfKeys(t *testing.T) {
	rng := NewRNG(42)

	keys := rng.ZipfKeys(10000, 100, 1.5)

	counts := make(map[uint32]int)
	for _, k := range keys {
		assert.GreaterOrEqual(t, k, uint32(1))
		assert.LessOrEqual(t, k, uint32(100))
		counts[k]++
	}
	// The hottest key dominates the tail.
	assert.Greater(t, counts[1], counts[50]*10)
}
