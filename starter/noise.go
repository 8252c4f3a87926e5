package starter

import "math/rand"

// NoiseSource produces bounded pseudo-random perturbations. Two sources
// created with the same seed produce identical sequences, which keeps runs
// reproducible and replayable.
type NoiseSource interface {
	// Sample returns a value in [-magnitude, +magnitude]. Every call
	// advances the underlying stream by exactly one draw.
	Sample(magnitude float64) float64
}

type randNoiseSource struct {
	rng *rand.Rand
}

// NewNoiseSource creates a seeded NoiseSource.
func NewNoiseSource(seed int64) NoiseSource {
	return &randNoiseSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (s *randNoiseSource) Sample(magnitude float64) float64 {
	return (s.rng.Float64()*2 - 1) * magnitude
}
