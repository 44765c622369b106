// Package randutil centralises seeded randomness so every shuffle, CPU
// decision and pacing delay in the server flows from one reproducible source.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64.
// rand/v2's PCG wants two 64-bit seeds; both are derived here so all call
// sites get reproducible sequences from a single seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// DurationBetween draws a uniformly random duration in [min, max]. Used for
// CPU pacing delays; returns zero when max <= 0 so test mode can disable
// pacing by zeroing the bounds.
func DurationBetween(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= 0 || max < min {
		return 0
	}
	if max == min {
		return min
	}
	return min + time.Duration(rng.Int64N(int64(max-min)+1))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
