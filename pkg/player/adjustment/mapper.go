// Package adjustment converts normalized video adjustment values into the
// native ranges of an engine.
package adjustment

// Map projects a normalized value onto [0, upperBound].
//
// The value is clamped to [-1, 1] first. With shift the value is moved into
// [0, 2] (the normalized zero lands in the middle of the native range),
// without shift negative values are clamped to zero. The result is then
// linearly rescaled onto [0, upperBound].
func Map(value, upperBound float64, shift bool) float64 {
	switch {
	case value < -1:
		value = -1
	case value > 1:
		value = 1
	case value != value: // NaN
		value = 0
	}

	max := 1.0
	if shift {
		value += 1
		max += 1
	} else if value < 0 {
		value = 0
	}

	return upperBound * value / max
}
