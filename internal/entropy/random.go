// Package entropy provides the deterministic pseudo-random stream that feeds
// every stochastic decision in the engine. Unlike a true entropy source, the
// whole point here is reproducibility: the same seed and call sequence yields
// the same output on every platform, using only 32-bit unsigned arithmetic.
package entropy

// Stream is a mulberry32 generator. State is a single 32-bit word advanced
// once per draw.
type Stream struct {
	state uint32
}

// NewStream returns a stream seeded with the given 32-bit value.
func NewStream(seed uint32) *Stream {
	return &Stream{state: seed}
}

// Next returns the next value in [0, 1) and advances the stream.
func (s *Stream) Next() float64 {
	s.state += 0x6D2B79F5
	z := s.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	z ^= z >> 14
	return float64(z) / 4294967296.0
}

// WeightedIndex draws one index in proportion to the given weights, consuming
// exactly one value from the stream. Ties go to the first index whose
// cumulative weight reaches the draw. A non-positive total weight falls back
// to index 0 rather than failing.
func (s *Stream) WeightedIndex(weights []float64) int {
	if len(weights) == 0 {
		return 0
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	target := s.Next() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if cum >= target {
			return i
		}
	}
	// Floating-point shortfall at the upper edge lands on the last index.
	return len(weights) - 1
}
