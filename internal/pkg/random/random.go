// Package random provides a goroutine-safe general purpose PRNG.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness the game engines draw from.
type Source interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
	// IntN returns a number in [0, n). It panics if n <= 0.
	IntN(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Source seeded from the clock.
func New() Source {
	now := uint64(time.Now().UnixNano())
	return NewSeeded(now, now>>1|1)
}

// NewSeeded returns a deterministic Source, useful in tests.
func NewSeeded(seed1, seed2 uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Between returns a uniform integer in [lo, hi]. The bounds may be given in
// either order.
func Between(s Source, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.IntN(hi-lo+1)
}

// Chance reports true with probability p.
func Chance(s Source, p float64) bool {
	return s.Float64() < p
}
