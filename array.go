package blobarena

import (
	"fmt"
	"iter"

	"github.com/hupe1980/blobarena/internal/arena"
	"github.com/hupe1980/blobarena/internal/conv"
)

// arrayHeader precedes the elements. It is padded to 8 bytes so elements
// keep the arena alignment.
type arrayHeader struct {
	Length int32
	_      int32
}

const arrayHeaderSize = 8

// Array is a fixed-length, length-prefixed sequence of T.
//
// The length is set at allocation time and never changes; elements are
// written by index afterwards. Index checks are Go's slice bounds checks.
type Array[T any] uint32

// AllocArray allocates an array of length zeroed elements.
func AllocArray[T any](c Container, length int) (Array[T], error) {
	if err := checkValue[T](); err != nil {
		return 0, err
	}
	n, err := conv.To[int32](length)
	if err != nil || length < 0 {
		return 0, fmt.Errorf("%w: array length %d", ErrInvalidArgument, length)
	}
	elem := arena.SizeOf[T]()
	if elem > 0 && length > (arena.MaxCapacity-arrayHeaderSize)/elem {
		return 0, fmt.Errorf("%w: array of %d elements does not fit an arena", ErrInvalidArgument, length)
	}

	off, err := c.alloc("array", arrayHeaderSize+length*elem)
	if err != nil {
		return 0, err
	}
	arena.Ref[arrayHeader](c.a, off).Length = n
	return Array[T](off), nil
}

// Raw returns the untyped handle.
func (h Array[T]) Raw() RawPtr { return RawPtr(h) }

// IsNil reports whether h is the nil handle.
func (h Array[T]) IsNil() bool { return h == 0 }

// Len returns the number of elements.
func (h Array[T]) Len(c Container) int {
	if h == 0 || !c.IsValid() {
		return 0
	}
	return int(arena.Load[arrayHeader](c.a, uint32(h)).Length)
}

// Slice returns the elements as a slice aliasing the arena. Writes through
// it are writes to the blob. It is invalidated by the next allocation on c.
func (h Array[T]) Slice(c Container) []T {
	c.mustBeValid()
	if h == 0 {
		return nil
	}
	n := int(arena.Load[arrayHeader](c.a, uint32(h)).Length)
	return arena.Slice[T](c.a, uint32(h)+arrayHeaderSize, n)
}

// Get returns element i.
func (h Array[T]) Get(c Container, i int) T {
	return h.Slice(c)[i]
}

// Set overwrites element i.
func (h Array[T]) Set(c Container, i int, v T) {
	h.Slice(c)[i] = v
}

// Ref returns a pointer to element i. It is invalidated by the next
// allocation on c.
func (h Array[T]) Ref(c Container, i int) *T {
	return &h.Slice(c)[i]
}

// All iterates over index/value pairs.
func (h Array[T]) All(c Container) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if h == 0 || !c.IsValid() {
			return
		}
		for i, v := range h.Slice(c) {
			if !yield(i, v) {
				return
			}
		}
	}
}

// ArrayOf allocates an array holding a copy of values.
func ArrayOf[T any](c Container, values []T) (Array[T], error) {
	h, err := AllocArray[T](c, len(values))
	if err != nil {
		return 0, err
	}
	copy(h.Slice(c), values)
	return h, nil
}
