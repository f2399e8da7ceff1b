// Package random provides the random-number capability shared by the
// scenario selector, the array/delay modulator and the tag generators.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the random capability the engine depends on.
// *rand.Rand satisfies it, which keeps seeded sources usable in tests.
type Source interface {
	// Intn returns a uniform int in [0,n). n must be > 0.
	Intn(n int) int
	// Float64 returns a uniform float in [0,1).
	Float64() float64
	// Read fills p with random bytes.
	Read(p []byte) (int, error)
}

// LockedSource is a Source safe for concurrent use
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a concurrency-safe source. A zero seed seeds from the clock.
func New(seed int64) *LockedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedSource{rng: rand.New(rand.NewSource(seed))}
}

// Intn implements Source
func (s *LockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Float64 implements Source
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Read implements Source
func (s *LockedSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Read(p)
}

// Between returns a uniform int in [min,max] inclusive. It returns min when
// max <= min.
func Between(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Pick returns a uniformly chosen element of items
func Pick(src Source, items []string) string {
	return items[src.Intn(len(items))]
}
