package core

import "math"

const defaultEpsilon = 1e-12

// SilenceFloorDB is the level at and below which a gain is treated as silence.
const SilenceFloorDB = -80.0

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in long feedback tails.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// DBToGain converts dB to linear amplitude with a hard silence floor:
// levels at or below [SilenceFloorDB] map to exactly 0.
func DBToGain(db float64) float64 {
	if db <= SilenceFloorDB {
		return 0
	}

	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// GainToPercent expresses a linear gain as a percentage (1.0 = 100%).
func GainToPercent(gain float64) float64 {
	return gain * 100
}

// PercentToGain maps a percentage knob value to a linear gain.
func PercentToGain(percent float64) float64 {
	return percent / 100
}

// DBToPercent is the display form of a dB level, e.g. -6 dB = 50.12%.
func DBToPercent(db float64) float64 {
	return GainToPercent(DBToGain(db))
}

// Convex returns the convex combination a*t + b*(1-t).
// t is expected in [0, 1]; for finite a and b, t=0 yields b and t=1
// yields a exactly.
func Convex(a, b, t float64) float64 {
	return a*t + b*(1-t)
}

// FactorSign returns -1 when invert is set and +1 otherwise.
func FactorSign(invert bool) float64 {
	if invert {
		return -1
	}

	return 1
}

// BalanceToStereo returns equal-power left/right coefficients for a balance
// ratio in [0, 1] (0 = hard left, 1 = hard right).
func BalanceToStereo(ratio float64) (left, right float64) {
	ratio = Clamp(ratio, 0, 1)
	return math.Cos(math.Pi / 2 * ratio), math.Sin(math.Pi / 2 * ratio)
}
