package starter

import (
	"fmt"
	"math"
)

// Params holds every named coefficient of the fermentation model. The
// functional forms are fixed; the coefficients are configuration. Rates are
// per second, temperatures in °C, masses and populations in the relative
// units of State.
type Params struct {
	// Logistic growth and death rates at the temperature optimum.
	YeastGrowthRate    float64
	BacteriaGrowthRate float64
	YeastDeathRate     float64
	BacteriaDeathRate  float64

	// Gaussian temperature response. Each population has its own optimum
	// and width; outside the bump the population goes dormant or dies.
	YeastOptimalTemp    float64
	YeastTempWidth      float64
	BacteriaOptimalTemp float64
	BacteriaTempWidth   float64

	// NutrientHalfSaturation is the Michaelis–Menten half-saturation
	// constant: growth runs at half speed when the nutrient level equals
	// it.
	NutrientHalfSaturation float64

	// ConsumptionCoeff converts population growth into nutrient depletion.
	ConsumptionCoeff float64

	// Carrying capacity per unit flour mass. Hydration raises capacity
	// with diminishing returns above CapacityHalfHydration.
	CapacityPerFlour      float64
	CapacityHalfHydration float64

	// Gas production and release. WeakStructureLeak raises the release
	// rate as gluten strength drops.
	GasYield          float64
	GasReleaseRate    float64
	WeakStructureLeak float64

	// Gluten development and over-proofing collapse.
	// GasHoldingCapacity is the gas volume one unit of gluten strength can
	// hold before collapse starts.
	GlutenDevelopmentRate float64
	GlutenCollapseRate    float64
	GasHoldingCapacity    float64

	// Salt slows growth (fraction of growth lost at MaxSaltRatio) and
	// strengthens gluten development.
	SaltRetardation float64
	SaltGlutenBoost float64

	// Ethanol byproduct: produced with yeast growth, evaporates slowly,
	// and inhibits the yeast itself.
	EthanolYield       float64
	EthanolEvaporation float64
	EthanolInhibition  float64

	// NoiseMagnitude scales the per-step perturbation applied to every
	// derivative. Zero disables the wobble entirely.
	NoiseMagnitude float64
}

// DefaultParams returns a parameter set tuned for an hours-long fermentation
// at room temperature.
func DefaultParams() Params {
	return Params{
		YeastGrowthRate:    2.8e-4,
		BacteriaGrowthRate: 3.3e-4,
		YeastDeathRate:     2.0e-5,
		BacteriaDeathRate:  2.5e-5,

		YeastOptimalTemp:    27.0,
		YeastTempWidth:      8.0,
		BacteriaOptimalTemp: 30.0,
		BacteriaTempWidth:   10.0,

		NutrientHalfSaturation: 2.0,
		ConsumptionCoeff:       0.5,

		CapacityPerFlour:      12.0,
		CapacityHalfHydration: 0.6,

		GasYield:          1.5,
		GasReleaseRate:    5.5e-5,
		WeakStructureLeak: 3.0,

		GlutenDevelopmentRate: 1.4e-5,
		GlutenCollapseRate:    1.0e-5,
		GasHoldingCapacity:    30.0,

		SaltRetardation: 0.5,
		SaltGlutenBoost: 4.0,

		EthanolYield:       0.4,
		EthanolEvaporation: 1.0e-5,
		EthanolInhibition:  1.0e-5,

		NoiseMagnitude: 0.02,
	}
}

// Validate reports an ErrInvalidConfiguration if the parameter set cannot
// drive a run.
func (p Params) Validate() error {
	positive := map[string]float64{
		"YeastTempWidth":         p.YeastTempWidth,
		"BacteriaTempWidth":      p.BacteriaTempWidth,
		"NutrientHalfSaturation": p.NutrientHalfSaturation,
		"CapacityPerFlour":       p.CapacityPerFlour,
		"CapacityHalfHydration":  p.CapacityHalfHydration,
		"GasHoldingCapacity":     p.GasHoldingCapacity,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v",
				ErrInvalidConfiguration, name, v)
		}
	}

	nonNegative := map[string]float64{
		"YeastGrowthRate":       p.YeastGrowthRate,
		"BacteriaGrowthRate":    p.BacteriaGrowthRate,
		"YeastDeathRate":        p.YeastDeathRate,
		"BacteriaDeathRate":     p.BacteriaDeathRate,
		"ConsumptionCoeff":      p.ConsumptionCoeff,
		"GasYield":              p.GasYield,
		"GasReleaseRate":        p.GasReleaseRate,
		"WeakStructureLeak":     p.WeakStructureLeak,
		"GlutenDevelopmentRate": p.GlutenDevelopmentRate,
		"GlutenCollapseRate":    p.GlutenCollapseRate,
		"SaltGlutenBoost":       p.SaltGlutenBoost,
		"EthanolYield":          p.EthanolYield,
		"EthanolEvaporation":    p.EthanolEvaporation,
		"EthanolInhibition":     p.EthanolInhibition,
		"NoiseMagnitude":        p.NoiseMagnitude,
	}
	for name, v := range nonNegative {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be non-negative, got %v",
				ErrInvalidConfiguration, name, v)
		}
	}

	if p.SaltRetardation < 0 || p.SaltRetardation > 1 {
		return fmt.Errorf("%w: SaltRetardation must be in [0, 1], got %v",
			ErrInvalidConfiguration, p.SaltRetardation)
	}

	for name, v := range map[string]float64{
		"YeastOptimalTemp":    p.YeastOptimalTemp,
		"BacteriaOptimalTemp": p.BacteriaOptimalTemp,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v",
				ErrInvalidConfiguration, name, v)
		}
	}

	return nil
}
