package prediction

// weylIncrement is the Weyl sequence step of the mixing generator.
const weylIncrement uint32 = 0x6D2B79F5

// Stream is a reproducible sequence of floats in [0,1) derived from a 32-bit
// seed. It carries only its own state; two streams built from the same seed
// yield identical sequences. A Stream must not be shared between goroutines.
type Stream struct {
	state uint32
}

// NewStream creates a stream positioned at its first value.
func NewStream(seed uint32) *Stream {
	return &Stream{state: seed}
}

// Next advances the stream and returns the next value in [0,1).
func (s *Stream) Next() float64 {
	s.state += weylIncrement
	t := s.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Signed returns the next value remapped to [-1,1).
func (s *Stream) Signed() float64 {
	return (s.Next() - 0.5) * 2
}
