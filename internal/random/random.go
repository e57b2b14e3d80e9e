// Package random builds request-scoped random streams. There is no package
// level generator: every stream is derived from an explicit seed and a chunk
// index so that simulations are reproducible regardless of how chunks are
// scheduled across workers.
package random

import (
	"golang.org/x/exp/rand"
)

// DefaultSeed is the seed used when a request does not supply one.
const DefaultSeed uint64 = 7405

// Stream draws standard normal variates from a seeded PCG source.
type Stream struct {
	src rand.Source
	rng *rand.Rand
}

// NewStream returns the stream for chunk index of a simulation seeded with seed.
func NewStream(seed uint64, index int) *Stream {
	src := rand.NewSource(ChunkSeed(seed, index))
	return &Stream{src: src, rng: rand.New(src)}
}

// Normal returns one standard normal draw.
func (s *Stream) Normal() float64 {
	return s.rng.NormFloat64()
}

// FillNormal overwrites dst with standard normal draws.
func (s *Stream) FillNormal(dst []float64) {
	for i := range dst {
		dst[i] = s.rng.NormFloat64()
	}
}

// Source exposes the underlying source for samplers that take one directly.
func (s *Stream) Source() rand.Source {
	return s.src
}

// ChunkSeed mixes seed and index with the splitmix64 finalizer so that
// neighbouring chunks get statistically unrelated sources.
func ChunkSeed(seed uint64, index int) uint64 {
	z := seed + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
