package store

import "math/rand/v2"

// Source is the pluggable 64-bit PRNG seam span-id generation draws
// from. Seedable so tests get deterministic span/trace ids; production
// wiring seeds from a high-entropy source at startup.
type Source interface {
	Uint64() uint64
}

// pcgSource wraps math/rand/v2's PCG, the stdlib's general-purpose
// generator. No off-the-shelf third-party PRNG fits a general seedable
// uint64 source as cleanly: an identifier scheme like ulid is tied to
// wall-clock monotonicity, and a hash function like murmur3 solves a
// different problem than "give me 64 fresh bits on demand".
type pcgSource struct {
	r *rand.Rand
}

// NewSource builds a deterministic Source from an explicit 128-bit seed.
func NewSource(seed1, seed2 uint64) Source {
	return &pcgSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

func (s *pcgSource) Uint64() uint64 {
	return s.r.Uint64()
}
