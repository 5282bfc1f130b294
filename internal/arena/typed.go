package arena

import "unsafe"

// SizeOf returns the number of bytes a T occupies in the arena.
func SizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Alloc reserves a zeroed T and returns its offset.
func Alloc[T any](a *Arena) (uint32, error) {
	return a.AllocBytes(SizeOf[T]())
}

// Ref reinterprets the bytes at off as a *T.
// The pointer is invalidated by the next allocation that grows the arena.
func Ref[T any](a *Arena, off uint32) *T {
	return (*T)(a.Pointer(off))
}

// Load returns a copy of the T stored at off.
func Load[T any](a *Arena, off uint32) T {
	return *Ref[T](a, off)
}

// Store writes v at off.
func Store[T any](a *Arena, off uint32, v T) {
	*Ref[T](a, off) = v
}

// Slice reinterprets n consecutive T values starting at off.
// The slice is invalidated by the next allocation that grows the arena.
func Slice[T any](a *Arena, off uint32, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(Ref[T](a, off), n)
}

// BytesOf returns the raw bytes of *v without copying.
func BytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v)) //nolint:gosec // raw key bytes for hashing
}
