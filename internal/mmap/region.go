package mmap

import "os"

// Region is a window [off, off+n) of a Mapping, e.g. the payload behind a
// snapshot header. The parent Mapping owns the memory.
type Region struct {
	m   *Mapping
	off int
	n   int
}

// Region returns the window of n bytes starting at off.
func (m *Mapping) Region(off, n int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || off > len(m.data)-n {
		return nil, ErrOutOfBounds
	}
	return &Region{m: m, off: off, n: n}, nil
}

// Bytes returns the window, or nil once the parent is closed.
func (r *Region) Bytes() []byte {
	if r.m.closed.Load() {
		return nil
	}
	return r.m.data[r.off : r.off+r.n : r.off+r.n]
}

// Advise applies pattern to every page the window touches. madvise works on
// whole pages, so the range is widened down to a page boundary.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.m.closed.Load() {
		return ErrClosed
	}
	start := r.off &^ (os.Getpagesize() - 1)
	return madvise(r.m.data[start:r.off+r.n], pattern)
}
