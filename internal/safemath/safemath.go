package safemath

import (
	"errors"
	"math/bits"
)

var ErrOverflow = errors.New("number overflow")

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

// AddSigned64 adds a signed delta to an unsigned counter. It reports false
// when the result overflows or would be negative.
func AddSigned64(a uint64, delta int64) (uint64, bool) {
	if delta >= 0 {
		return Add64(a, uint64(delta))
	}
	// -(delta+1)+1 avoids negating math.MinInt64.
	return Sub64(a, uint64(-(delta+1))+1)
}
