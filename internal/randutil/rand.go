// Package randutil provides seeded randomness for reproducible session codes.
package randutil

import (
	rand "math/rand/v2"
	"sync"
)

// Rand is a seeded generator that is safe for concurrent use. The store
// draws session codes from it on every request goroutine.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Rand whose sequence depends only on seed.
func New(seed int64) *Rand {
	u := uint64(seed)
	return &Rand{r: rand.New(rand.NewPCG(splitmix(u), splitmix(u^0x9e3779b97f4a7c15)))}
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// splitmix spreads nearby seeds (0, 1, 2...) across the PCG state space.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
