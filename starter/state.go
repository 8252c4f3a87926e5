package starter

import "math"

// Bounds for the clamped state fields.
const (
	MaxHydration = 2.0
	MaxSaltRatio = 0.05

	MinTemperature = 0.0
	MaxTemperature = 50.0
)

// State is a snapshot of a fermenting sourdough starter at a point in
// simulated time. Values are in relative units, not literal cell counts or
// grams. A State is a value; the simulation never mutates one in place but
// derives a replacement from it, so observers can keep a snapshot safely.
type State struct {
	// TimeElapsed is the time since the simulation started, in seconds.
	TimeElapsed float64

	// TimeSinceLastFeeding is reset to zero on each feeding event.
	TimeSinceLastFeeding float64

	// Hydration is the water-to-flour mass ratio, in [0, MaxHydration].
	Hydration float64

	// Temperature is the ambient temperature of the last step, in °C.
	Temperature float64

	// FlourMass is the total flour mass of the starter. It grows with
	// every feeding and weights the hydration blend.
	FlourMass float64

	YeastPopulation    float64
	BacteriaPopulation float64

	// NutrientLevel is depleted by population growth and replenished only
	// by feeding events.
	NutrientLevel float64

	// GasVolume is the accumulated CO₂ held in the dough.
	GasVolume float64

	// GlutenStrength is the structural network integrity, in [0, 1].
	GlutenStrength float64

	// SaltRatio is the salt fraction of the flour mass, in
	// [0, MaxSaltRatio].
	SaltRatio float64

	// EthanolLevel is the accumulated fermentation byproduct.
	EthanolLevel float64
}

// NewState builds a well-formed snapshot from the given field values.
// Out-of-range values are clamped into range and negative quantities are
// floored at zero. It never fails.
func NewState(init State) State {
	return init.clamped()
}

func (s State) clamped() State {
	s.TimeElapsed = math.Max(0, s.TimeElapsed)
	s.TimeSinceLastFeeding = math.Max(0, s.TimeSinceLastFeeding)
	s.Hydration = clamp(s.Hydration, 0, MaxHydration)
	s.FlourMass = math.Max(0, s.FlourMass)
	s.YeastPopulation = math.Max(0, s.YeastPopulation)
	s.BacteriaPopulation = math.Max(0, s.BacteriaPopulation)
	s.NutrientLevel = math.Max(0, s.NutrientLevel)
	s.GasVolume = math.Max(0, s.GasVolume)
	s.GlutenStrength = clamp(s.GlutenStrength, 0, 1)
	s.SaltRatio = clamp(s.SaltRatio, 0, MaxSaltRatio)
	s.EthanolLevel = math.Max(0, s.EthanolLevel)

	return s
}

// TotalMass returns the combined flour and water mass of the starter.
func (s State) TotalMass() float64 {
	return s.FlourMass * (1 + s.Hydration)
}

// Finite reports whether every field holds a finite value.
func (s State) Finite() bool {
	return s.allFinite()
}

func (s State) allFinite() bool {
	for _, v := range []float64{
		s.TimeElapsed,
		s.TimeSinceLastFeeding,
		s.Hydration,
		s.Temperature,
		s.FlourMass,
		s.YeastPopulation,
		s.BacteriaPopulation,
		s.NutrientLevel,
		s.GasVolume,
		s.GlutenStrength,
		s.SaltRatio,
		s.EthanolLevel,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
