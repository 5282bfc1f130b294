// Package arena provides the off-heap byte buffer that holds a blob dataset.
//
// The arena is a single contiguous region. Everything stored in it is
// addressed by a uint32 byte offset instead of a Go pointer, so the whole
// region can be copied, persisted or memory-mapped as one opaque block.
//
// # Features
//
//   - Bump allocation with 8-byte alignment, zero-filled
//   - Heap (pointer-free slab) or mmap (off-heap) backing
//   - Growth by copy: offsets survive, raw pointers do not
//   - Optional memory budget via MemoryAcquirer
//
// # Memory Model
//
// Allocations bump a cursor and return a uint32 byte offset into the buffer.
// When an allocation does not fit, the arena maps a larger buffer, copies the
// used prefix verbatim and releases the old one. Offsets therefore survive
// growth; raw pointers obtained through Pointer or Ref do not.
//
// # Concurrency Model
//
// Arena performs no locking. All allocation happens on one goroutine during a
// build phase; afterwards the buffer is read-only and may be read from any
// number of goroutines.
//
// # Safety
//
// All allocation methods return errors instead of panicking. Typed access
// through Ref, Load, Store and Slice is unchecked and must only be used with
// offsets returned by this arena.
package arena
