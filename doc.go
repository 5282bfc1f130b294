// Package blobarena stores large, build-once datasets in a single relocatable
// byte buffer.
//
// A Container owns one arena. Every structure allocated through it (scalars,
// arrays, strings, hash maps, hash sets and multimaps) lives inside the arena
// and is addressed by a handle: a uint32 byte offset. Handles hold no Go
// pointers, so they can be stored inside other blob structures, and the
// whole blob can be copied, persisted and mapped back without fix-ups.
//
// # Quick Start
//
//	c, _ := blobarena.New(1 << 20)
//	defer c.Dispose()
//
//	items, _ := blobarena.AllocMap[uint32, Item](c, len(source))
//	for _, it := range source {
//	    items.Set(c, it.ID, it)
//	}
//	_ = c.SetRoot(items.Raw())
//
//	item, ok := items.TryGetValue(c, 42)
//
// # Element Types
//
// Stored types must be pointer-free: no pointers, slices, strings, maps,
// channels, funcs or interfaces. Use String, Array or another handle to
// refer to variable-sized data. Keys (map and multimap keys, set values)
// must also be free of padding and floating point fields, because they are
// hashed and compared by their raw bytes. Violations are reported with an
// *UnsupportedTypeError when the structure is allocated.
//
// # Capacity
//
// Maps, sets and multimaps have a fixed capacity chosen at allocation time.
// It is both the bucket count and the maximum number of entries; inserting
// beyond it fails with ErrCapacityExceeded. Size them from the source data.
// The arena itself grows on demand by doubling.
//
// # Memory Model
//
// Growth moves the arena, so every *T obtained from Ref, AllRefs or Slice is
// invalidated by the next allocation. Handles stay valid until Dispose.
//
// # Concurrency
//
// A Container is not safe for concurrent mutation. After the build phase it
// may be read from any number of goroutines.
//
// # Persistence
//
// See the snapshot package for writing a Container to disk and mapping it
// back, and the catalog package for publishing snapshots to a blob store.
package blobarena
