package sim

import "github.com/MichaelTJones/pcg"

// pcgSequence selects the PCG stream. Changing it changes every seeded grid.
const pcgSequence = 0xda3e39cb94b95bdb

// rng is the generator used for initial track placement. It is seeded once
// and only consumed while building the grid.
type rng struct {
	p *pcg.PCG32
}

func newRNG(seed int64) *rng {
	p := pcg.NewPCG32()
	p.Seed(uint64(seed), pcgSequence)
	return &rng{p: p}
}

// Float64 returns a value in [0, 1).
func (r *rng) Float64() float64 {
	return float64(r.p.Random()) / (1 << 32)
}

// Uniform returns a value in [lo, hi).
func (r *rng) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}
