package starter

import (
	"fmt"
	"math"
)

// A FeedPolicy describes when a starter is fed and what each feeding adds.
type FeedPolicy struct {
	// Interval is the time between feedings, in seconds. math.Inf(1)
	// means the starter is never fed (neglect).
	Interval float64

	// FlourMass and WaterMass are the masses added per feeding, in the
	// same relative units as State. Their ratio shifts the hydration.
	FlourMass float64
	WaterMass float64

	// NutrientAmount replenishes the nutrient pool. There is no upper
	// cap; excess is worked off by the model's saturation factor.
	NutrientAmount float64
}

// Validate reports an ErrInvalidConfiguration if the policy cannot drive a
// run.
func (p FeedPolicy) Validate() error {
	if !(p.Interval > 0) {
		return fmt.Errorf("%w: feeding interval must be positive, got %v",
			ErrInvalidConfiguration, p.Interval)
	}

	for name, v := range map[string]float64{
		"FlourMass":      p.FlourMass,
		"WaterMass":      p.WaterMass,
		"NutrientAmount": p.NutrientAmount,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be non-negative, got %v",
				ErrInvalidConfiguration, name, v)
		}
	}

	return nil
}

// Scheduler decides when a feeding event is due and applies its effect.
type Scheduler struct {
	policy FeedPolicy
}

// NewScheduler creates a Scheduler for the given policy.
func NewScheduler(policy FeedPolicy) (*Scheduler, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Scheduler{policy: policy}, nil
}

// Policy returns the active feeding policy.
func (s *Scheduler) Policy() FeedPolicy {
	return s.policy
}

// MaybeFeed applies a feeding event if one is due and reports whether it
// fed. Skipped feedings need no intervention here: the model keeps
// depleting the nutrient pool and starvation is the consequence, not an
// error.
func (s *Scheduler) MaybeFeed(st State) (State, bool) {
	if st.TimeSinceLastFeeding < s.policy.Interval {
		return st, false
	}

	return s.feed(st), true
}

// feed applies the policy: replenish nutrient, blend hydration by mass,
// dilute salt and ethanol with the fresh mass, and reset the feeding
// counter.
func (s *Scheduler) feed(st State) State {
	p := s.policy

	oldFlour := st.FlourMass
	oldWater := st.Hydration * st.FlourMass
	oldTotal := oldFlour + oldWater

	newFlour := oldFlour + p.FlourMass
	newWater := oldWater + p.WaterMass
	newTotal := newFlour + newWater

	if newFlour > 0 {
		st.Hydration = clamp(newWater/newFlour, 0, MaxHydration)

		// Fresh flour carries no salt; the salt mass is unchanged while
		// the flour mass grows.
		st.SaltRatio = clamp(
			st.SaltRatio*oldFlour/newFlour, 0, MaxSaltRatio)
	}

	if newTotal > 0 {
		st.EthanolLevel *= oldTotal / newTotal
	}

	st.FlourMass = newFlour
	st.NutrientLevel += p.NutrientAmount
	st.TimeSinceLastFeeding = 0

	return st
}
