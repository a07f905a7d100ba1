package cfr

import "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// newPCG returns a *rand.PCG seeded deterministically from seed, mixed
// through a splitmix64-style avalanche so the two 64-bit seed halves don't
// correlate when seed itself is small or sequential (e.g. thread indices 0,
// 1, 2, ...). Keeping the PCG separate from the *rand.Rand wrapping it lets
// the solver serialize generator state directly for checkpointing.
func newPCG(seed uint64) *rand.PCG {
	return rand.NewPCG(mix(seed), mix(seed+goldenRatio64))
}

// newRand returns a *rand.Rand backed by a fresh PCG seeded from seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(newPCG(seed))
}

// childRand derives an independent stream for goroutine index i of a
// parallel iteration, from the solver's own seed sequence.
func childRand(seed uint64, i int) *rand.Rand {
	return newRand(seed ^ (uint64(i) * goldenRatio64))
}

// randSource mints independent, deterministic child RNGs indexed by an
// integer, used to give each parallel exploitability sample its own stream
// without sharing a generator across goroutines.
type randSource struct {
	seed uint64
}

func newRandSource(seed uint64) *randSource {
	return &randSource{seed: seed}
}

func (r *randSource) child(i int) *rand.Rand {
	return childRand(r.seed, i)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
