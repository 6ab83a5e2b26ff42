// Package feed implements the personalized activity feed: three-phase
// candidate generation, recency-decayed Bernoulli sampling and final
// assembly (dedupe, shuffle, paginate).
package feed

import "math/rand"

// Rand is the injected randomness source for sampling trials and the final
// shuffle. Production uses the process-wide generator; tests substitute a
// seeded *rand.Rand, which satisfies this interface directly.
type Rand interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// systemRand delegates to the process-wide math/rand generator, which is
// safe for concurrent use.
type systemRand struct{}

func (systemRand) Float64() float64                   { return rand.Float64() }
func (systemRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// SystemRand returns the default process-wide randomness source.
func SystemRand() Rand { return systemRand{} }
