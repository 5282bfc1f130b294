package blobarena

import (
	"fmt"

	"github.com/hupe1980/blobarena/internal/arena"
)

// RawPtr is an untyped byte offset into a Container's arena.
//
// The zero RawPtr is nil. A RawPtr owns nothing: it is valid only while the
// Container that issued it is alive.
type RawPtr uint32

// IsNil reports whether p is the nil handle.
func (p RawPtr) IsNil() bool { return p == 0 }

// Offset returns the byte offset.
func (p RawPtr) Offset() uint32 { return uint32(p) }

func (p RawPtr) String() string { return fmt.Sprintf("@%#x", uint32(p)) }

// Ptr is a typed offset to a single T stored in a Container.
type Ptr[T any] uint32

// PtrAt reinterprets an untyped handle as a *T handle.
func PtrAt[T any](p RawPtr) Ptr[T] { return Ptr[T](p) }

// AllocScalar allocates a zeroed T.
func AllocScalar[T any](c Container) (Ptr[T], error) {
	if err := checkValue[T](); err != nil {
		return 0, err
	}
	off, err := c.alloc("scalar", arena.SizeOf[T]())
	if err != nil {
		return 0, err
	}
	return Ptr[T](off), nil
}

// Raw returns the untyped handle.
func (p Ptr[T]) Raw() RawPtr { return RawPtr(p) }

// IsNil reports whether p is the nil handle.
func (p Ptr[T]) IsNil() bool { return p == 0 }

// Get returns a copy of the value.
func (p Ptr[T]) Get(c Container) T {
	c.mustBeValid()
	return arena.Load[T](c.a, uint32(p))
}

// Set overwrites the value.
func (p Ptr[T]) Set(c Container, v T) {
	c.mustBeValid()
	arena.Store(c.a, uint32(p), v)
}

// Ref returns a pointer into the arena. It is invalidated by the next
// allocation on c; cache the handle, not the pointer.
func (p Ptr[T]) Ref(c Container) *T {
	c.mustBeValid()
	return arena.Ref[T](c.a, uint32(p))
}
