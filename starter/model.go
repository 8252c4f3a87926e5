package starter

import (
	"fmt"
	"math"
)

// Model computes the next starter state from the current one, the elapsed
// time, and the ambient temperature. A Model is a pure stepper: it holds no
// state besides its coefficients and the noise stream, and it never mutates
// the input snapshot.
type Model struct {
	params Params
	noise  NoiseSource
}

// NewModel creates a Model. It returns ErrInvalidConfiguration if the
// parameter set cannot drive a run.
func NewModel(params Params, noise NoiseSource) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if noise == nil {
		return nil, fmt.Errorf("%w: a model requires a noise source",
			ErrInvalidConfiguration)
	}

	return &Model{params: params, noise: noise}, nil
}

// Params returns the coefficients the model runs with.
func (m *Model) Params() Params {
	return m.params
}

// derivatives holds the time derivative of every integrated quantity.
type derivatives struct {
	yeast    float64
	bacteria float64
	nutrient float64
	gas      float64
	gluten   float64
	ethanol  float64
}

func (d derivatives) scaled(f derivatives) derivatives {
	d.yeast *= f.yeast
	d.bacteria *= f.bacteria
	d.nutrient *= f.nutrient
	d.gas *= f.gas
	d.gluten *= f.gluten
	d.ethanol *= f.ethanol
	return d
}

// Step advances the state by dt seconds under the given ambient temperature
// using classic RK4 integration.
//
// A non-positive dt is a no-op. An out-of-range ambient temperature is
// clamped before use, so extreme values saturate the dormancy and death
// factors instead of producing undefined behavior. If the integration
// produces a non-finite quantity, the step is rejected: the input state is
// returned together with ErrNumericDivergence and the run may continue from
// it.
func (m *Model) Step(
	s State,
	dt float64,
	ambientTemp float64,
) (State, error) {
	if dt <= 0 || math.IsNaN(dt) {
		return s, nil
	}

	ambient := clamp(ambientTemp, MinTemperature, MaxTemperature)

	// One perturbation factor per quantity per step, applied identically
	// to every RK4 stage. The draw count is fixed so equal seeds replay
	// equal trajectories.
	wobble := derivatives{
		yeast:    1 + m.noise.Sample(m.params.NoiseMagnitude),
		bacteria: 1 + m.noise.Sample(m.params.NoiseMagnitude),
		nutrient: 1 + m.noise.Sample(m.params.NoiseMagnitude),
		gas:      1 + m.noise.Sample(m.params.NoiseMagnitude),
		gluten:   1 + m.noise.Sample(m.params.NoiseMagnitude),
		ethanol:  1 + m.noise.Sample(m.params.NoiseMagnitude),
	}

	k1 := m.derivativesAt(s, ambient).scaled(wobble)
	k2 := m.derivativesAt(integrate(s, k1, dt/2), ambient).scaled(wobble)
	k3 := m.derivativesAt(integrate(s, k2, dt/2), ambient).scaled(wobble)
	k4 := m.derivativesAt(integrate(s, k3, dt), ambient).scaled(wobble)

	combined := derivatives{
		yeast:    (k1.yeast + 2*k2.yeast + 2*k3.yeast + k4.yeast) / 6,
		bacteria: (k1.bacteria + 2*k2.bacteria + 2*k3.bacteria + k4.bacteria) / 6,
		nutrient: (k1.nutrient + 2*k2.nutrient + 2*k3.nutrient + k4.nutrient) / 6,
		gas:      (k1.gas + 2*k2.gas + 2*k3.gas + k4.gas) / 6,
		gluten:   (k1.gluten + 2*k2.gluten + 2*k3.gluten + k4.gluten) / 6,
		ethanol:  (k1.ethanol + 2*k2.ethanol + 2*k3.ethanol + k4.ethanol) / 6,
	}

	next := integrate(s, combined, dt)
	next.Temperature = ambient
	next.TimeElapsed = s.TimeElapsed + dt
	next.TimeSinceLastFeeding = s.TimeSinceLastFeeding + dt

	if !next.allFinite() {
		return s, fmt.Errorf(
			"%w: rejecting step at t=%.1fs, keeping previous state",
			ErrNumericDivergence, s.TimeElapsed)
	}

	return next, nil
}

// derivativesAt evaluates the model equations at the given state.
func (m *Model) derivativesAt(s State, ambient float64) derivatives {
	p := m.params

	fTYeast := gaussianBump(ambient, p.YeastOptimalTemp, p.YeastTempWidth)
	fTBacteria := gaussianBump(
		ambient, p.BacteriaOptimalTemp, p.BacteriaTempWidth)

	fN := s.NutrientLevel / (s.NutrientLevel + p.NutrientHalfSaturation)

	saltFactor := 1 - p.SaltRetardation*(s.SaltRatio/MaxSaltRatio)

	capacity := m.carryingCapacity(s)

	yeastGrowth := logisticGrowth(
		p.YeastGrowthRate*fTYeast*fN*saltFactor,
		s.YeastPopulation, capacity)
	bacteriaGrowth := logisticGrowth(
		p.BacteriaGrowthRate*fTBacteria*fN*saltFactor,
		s.BacteriaPopulation, capacity)

	yeastDeath := (p.YeastDeathRate*(1-fTYeast) +
		p.EthanolInhibition*s.EthanolLevel) * s.YeastPopulation
	bacteriaDeath := p.BacteriaDeathRate * (1 - fTBacteria) *
		s.BacteriaPopulation

	releaseRate := p.GasReleaseRate *
		(1 + p.WeakStructureLeak*(1-s.GlutenStrength))

	excessGas := math.Max(0,
		s.GasVolume-p.GasHoldingCapacity*s.GlutenStrength)

	// Consumption and byproducts track growth, not decline: a shrinking
	// population neither refunds nutrient nor reabsorbs gas.
	yeastUptake := math.Max(0, yeastGrowth)
	bacteriaUptake := math.Max(0, bacteriaGrowth)

	return derivatives{
		yeast:    yeastGrowth - yeastDeath,
		bacteria: bacteriaGrowth - bacteriaDeath,
		nutrient: -p.ConsumptionCoeff * (yeastUptake + bacteriaUptake),
		gas:      p.GasYield*yeastUptake - releaseRate*s.GasVolume,
		gluten: p.GlutenDevelopmentRate*fTYeast*
			(1+p.SaltGlutenBoost*s.SaltRatio) -
			p.GlutenCollapseRate*excessGas,
		ethanol: p.EthanolYield*yeastUptake -
			p.EthanolEvaporation*s.EthanolLevel,
	}
}

// carryingCapacity derives the logistic ceiling from flour mass and
// hydration. Wetter dough supports more activity, with diminishing returns
// above CapacityHalfHydration.
func (m *Model) carryingCapacity(s State) float64 {
	return m.params.CapacityPerFlour * s.FlourMass *
		s.Hydration / (s.Hydration + m.params.CapacityHalfHydration)
}

// logisticGrowth returns rate*pop*(1-pop/capacity), treating a vanished
// capacity as no room to grow rather than dividing by zero. The term goes
// negative above capacity, which is what keeps populations from
// overshooting their ceiling.
func logisticGrowth(rate, pop, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}

	return rate * pop * (1 - pop/capacity)
}

// gaussianBump is a unimodal response peaking at 1 when t == optimum.
func gaussianBump(t, optimum, width float64) float64 {
	d := (t - optimum) / width
	return math.Exp(-d * d)
}

// integrate moves the state forward by dt along the given derivatives and
// clamps the result back into its invariant ranges.
func integrate(s State, d derivatives, dt float64) State {
	s.YeastPopulation += d.yeast * dt
	s.BacteriaPopulation += d.bacteria * dt
	s.NutrientLevel += d.nutrient * dt
	s.GasVolume += d.gas * dt
	s.GlutenStrength += d.gluten * dt
	s.EthanolLevel += d.ethanol * dt

	return s.clamped()
}
