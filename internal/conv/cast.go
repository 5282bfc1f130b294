package conv

import (
	"errors"
	"fmt"
)

// ErrOverflow is wrapped by every conversion failure.
var ErrOverflow = errors.New("integer overflow")

// Integer is the set of integer types To converts between.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// To converts v to D, failing if the value does not survive the round trip
// or changes sign.
func To[D, S Integer](v S) (D, error) {
	d := D(v)
	if S(d) != v || (d < 0) != (v < 0) {
		var zero D
		return zero, fmt.Errorf("%w: %d does not fit %T", ErrOverflow, v, zero)
	}
	return d, nil
}
