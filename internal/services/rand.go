package services

import (
	"math/rand"
	"sync"
	"time"
)

// lockedSource serializes draws from an underlying source. math/rand
// sources are not safe for concurrent use, and cycles for different couples
// finish on different goroutines.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewLockedRand wraps rng behind a locked source so one instance can be
// shared across goroutines and services. The wrapper consumes the exact
// draw sequence of rng, so seeded tests stay deterministic. A nil rng
// seeds from the clock.
func NewLockedRand(rng *rand.Rand) *rand.Rand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rand.New(&lockedSource{src: rng})
}
