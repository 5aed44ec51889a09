package narrative

import (
	"math/rand"
	"sync"
	"time"
)

// Random source of the bounded numbers that flavor generated text.
// *math/rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
	Float64() float64
}

// lockedRandom serializes access to a *rand.Rand, which is not safe for concurrent use
type lockedRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a goroutine-safe source seeded with seed; 0 seeds from the clock
func NewRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRandom{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// Between returns a value in [lo, hi]
func Between(r Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Chance reports true with probability p
func Chance(r Random, p float64) bool {
	return r.Float64() < p
}
