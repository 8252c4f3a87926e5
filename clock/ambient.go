package clock

import "math"

// An AmbientSchedule supplies the ambient temperature as a function of the
// starter's elapsed time, in seconds. The model clamps whatever it returns,
// so a schedule may swing outside [0, 50] and simply drive the culture
// dormant.
type AmbientSchedule interface {
	TemperatureAt(elapsed float64) float64
}

// ConstantAmbient keeps a single temperature for the whole run.
type ConstantAmbient float64

// TemperatureAt returns the constant temperature.
func (a ConstantAmbient) TemperatureAt(_ float64) float64 {
	return float64(a)
}

// DailyCycleAmbient swings sinusoidally around a mean temperature with a
// 24-hour period, warmest a quarter period in.
type DailyCycleAmbient struct {
	Mean  float64
	Swing float64
}

const secondsPerDay = 24 * 3600

// TemperatureAt returns the cycle temperature at the given elapsed time.
func (a DailyCycleAmbient) TemperatureAt(elapsed float64) float64 {
	return a.Mean + a.Swing*math.Sin(2*math.Pi*elapsed/secondsPerDay)
}
