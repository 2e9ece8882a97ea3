package shared

import "math"

// Round rounds value half away from zero to the given number of decimal places.
// Monetary amounts are stored as float64 and normalised through this helper at
// every write boundary so that repeated recomputation stays stable.
func Round(value float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	return math.Round(value*pow) / pow
}

// RoundingEpsilon is the tolerance used when comparing amounts at a precision;
// one order of magnitude finer than the smallest representable unit.
func RoundingEpsilon(precision int) float64 {
	return 1 / math.Pow(10, float64(precision+1))
}

// AlmostEqual reports whether two amounts agree within the rounding epsilon of
// the given precision.
func AlmostEqual(a, b float64, precision int) bool {
	return math.Abs(a-b) < RoundingEpsilon(precision)
}
