// Package mathx holds small generic numeric helpers shared by the range
// conversion and servo mapping code.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// MapLinear maps x in [inMin,inMax] to [outMin,outMax] using 64-bit
// intermediates. Inputs outside the range are clamped first.
func MapLinear[T constraints.Integer](x, inMin, inMax, outMin, outMax T) T {
	if inMax == inMin {
		return outMin
	}
	x = Clamp(x, inMin, inMax)
	num := (int64(x) - int64(inMin)) * (int64(outMax) - int64(outMin))
	den := int64(inMax) - int64(inMin)
	return T(int64(outMin) + num/den)
}
