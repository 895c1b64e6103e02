// Package testutil provides seeded random helpers for tests.
package testutil

import (
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
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Bool returns true with probability p.
func (r *RNG) Bool(p float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64() < p
}

// IDs returns n distinct document ids in [0, limit) in random order.
// n is capped at limit.
func (r *RNG) IDs(n, limit int) []uint32 {
	n = min(n, limit)
	r.mu.Lock()
	perm := r.rand.Perm(limit)
	r.mu.Unlock()

	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(perm[i])
	}
	return out
}

// Pick returns a random element of xs. xs must not be empty.
func Pick[T any](r *RNG, xs []T) T {
	return xs[r.Intn(len(xs))]
}

// Sample returns a random subset of xs, possibly empty, in the order of xs.
func Sample[T any](r *RNG, xs []T) []T {
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if r.Bool(0.5) {
			out = append(out, x)
		}
	}
	return out
}
