package clock

import (
	"fmt"
	"math"
	"strconv"

	"github.com/levainlab/levain/starter"
)

// Checkpoint returns the clock's serialization contract: the starter state
// fields, the active feeding policy, the noise seed, and the time scale.
func (c *Clock) Checkpoint() (map[string]any, error) {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	s := c.state
	p := c.feeder.Policy()

	return map[string]any{
		"state": map[string]any{
			"time_elapsed":            s.TimeElapsed,
			"time_since_last_feeding": s.TimeSinceLastFeeding,
			"hydration":               s.Hydration,
			"temperature":             s.Temperature,
			"flour_mass":              s.FlourMass,
			"yeast_population":        s.YeastPopulation,
			"bacteria_population":     s.BacteriaPopulation,
			"nutrient_level":          s.NutrientLevel,
			"gas_volume":              s.GasVolume,
			"gluten_strength":         s.GlutenStrength,
			"salt_ratio":              s.SaltRatio,
			"ethanol_level":           s.EthanolLevel,
		},
		"policy": map[string]any{
			// JSON has no infinity; zero stands in for "never fed".
			"interval":        zeroIfInf(p.Interval),
			"flour_mass":      p.FlourMass,
			"water_mass":      p.WaterMass,
			"nutrient_amount": p.NutrientAmount,
		},
		// Seeds travel as strings; float64 cannot hold every int64.
		"seed":       strconv.FormatInt(c.seed, 10),
		"time_scale": c.timeScale,
	}, nil
}

// Restore rebuilds the clock from a checkpoint produced by Checkpoint. The
// noise stream restarts from the stored seed, so a restored run replays the
// same trajectory the original would have produced from this point only if
// the original was saved at a step boundary, which is the only time a
// snapshot is ever published.
func (c *Clock) Restore(data map[string]any) error {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	if c.runState == Running {
		return fmt.Errorf("cannot restore a running clock")
	}

	stateData, err := subMap(data, "state")
	if err != nil {
		return err
	}

	policyData, err := subMap(data, "policy")
	if err != nil {
		return err
	}

	var s starter.State
	for key, dst := range map[string]*float64{
		"time_elapsed":            &s.TimeElapsed,
		"time_since_last_feeding": &s.TimeSinceLastFeeding,
		"hydration":               &s.Hydration,
		"temperature":             &s.Temperature,
		"flour_mass":              &s.FlourMass,
		"yeast_population":        &s.YeastPopulation,
		"bacteria_population":     &s.BacteriaPopulation,
		"nutrient_level":          &s.NutrientLevel,
		"gas_volume":              &s.GasVolume,
		"gluten_strength":         &s.GlutenStrength,
		"salt_ratio":              &s.SaltRatio,
		"ethanol_level":           &s.EthanolLevel,
	} {
		if *dst, err = number(stateData, key); err != nil {
			return err
		}
	}

	var p starter.FeedPolicy
	for key, dst := range map[string]*float64{
		"interval":        &p.Interval,
		"flour_mass":      &p.FlourMass,
		"water_mass":      &p.WaterMass,
		"nutrient_amount": &p.NutrientAmount,
	} {
		if *dst, err = number(policyData, key); err != nil {
			return err
		}
	}

	seed, err := integer(data, "seed")
	if err != nil {
		return err
	}

	timeScale, err := number(data, "time_scale")
	if err != nil {
		return err
	}

	if p.Interval == 0 {
		p.Interval = math.Inf(1)
	}

	feeder, err := starter.NewScheduler(p)
	if err != nil {
		return err
	}

	model, err := starter.NewModel(
		c.params, starter.NewNoiseSource(seed))
	if err != nil {
		return err
	}

	c.state = starter.NewState(s)
	c.feeder = feeder
	c.model = model
	c.seed = seed
	c.timeScale = timeScale

	return nil
}

func zeroIfInf(v float64) float64 {
	if math.IsInf(v, 0) {
		return 0
	}
	return v
}

func subMap(data map[string]any, key string) (map[string]any, error) {
	sub, ok := data[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("checkpoint is missing the %q section", key)
	}
	return sub, nil
}

func number(data map[string]any, key string) (float64, error) {
	v, ok := data[key].(float64)
	if !ok {
		return 0, fmt.Errorf("checkpoint is missing the %q field", key)
	}
	return v, nil
}

func integer(data map[string]any, key string) (int64, error) {
	v, ok := data[key].(string)
	if !ok {
		return 0, fmt.Errorf("checkpoint is missing the %q field", key)
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("checkpoint field %q is not an integer: %w",
			key, err)
	}

	return n, nil
}
