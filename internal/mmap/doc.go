// Package mmap provides memory-mapped file access for zero-copy I/O.
//
// # Overview
//
// Memory mapping allows direct access to file contents without copying data
// through kernel buffers. Uncompressed blob snapshots are mapped straight into
// an arena, so a multi-gigabyte configuration dataset loads without a copy.
//
// # Usage
//
//	m, err := mmap.Open("config.blob")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to file contents
//	data := m.Bytes()
//
//	// Create a view into a specific region
//	region, _ := m.Region(offset, size)
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
// The package provides a unified API across platforms:
//
//   - Unix (Linux, macOS, BSD): Uses mmap(2) with madvise(2) for access hints
//   - Windows: Uses CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent read access. The Close() method
// is idempotent and protected by atomic operations. However, callers must
// ensure no goroutines access Bytes() after Close() returns.
//
// # Anonymous and Private Mappings
//
// MapAnon() creates read-write anonymous mappings for off-heap memory allocation.
// The arena uses them to hold its buffer outside the Go garbage collector's
// control.
//
// OpenPrivate() maps a file copy-on-write: the caller may write to the bytes
// without modifying the file. Snapshots opened this way remain mutable.
package mmap
