package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint32 returns a pseudo-random 32-bit value.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32()
}

// Bytes returns n random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// UniqueKeys returns n distinct non-zero uint32 keys in random order.
func (r *RNG) UniqueKeys(n int) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint32]struct{}, n)
	keys := make([]uint32, 0, n)
	for len(keys) < n {
		k := r.rand.Uint32()
		if k == 0 {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

const letters = "abcdefghijklmnopqrstuvwxyz"

// Words returns n random lower-case words with lengths in [minLen, maxLen].
// Words may repeat.
func (r *RNG) Words(n, minLen, maxLen int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	words := make([]string, n)
	buf := make([]byte, maxLen)
	for i := range words {
		l := minLen + r.rand.Intn(maxLen-minLen+1)
		for j := range l {
			buf[j] = letters[r.rand.Intn(len(letters))]
		}
		words[i] = string(buf[:l])
	}
	return words
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// ZipfKeys returns n keys drawn from [1, distinct] with a Zipfian
// distribution, the shape of one-to-many config relations.
func (r *RNG) ZipfKeys(n, distinct int, s float64) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = uint32(r.zipfLocked(distinct, s)) + 1 //nolint:gosec // bounded by distinct
	}
	return keys
}
