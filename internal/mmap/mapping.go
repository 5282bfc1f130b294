package mmap

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Mapping is a mapped byte range backed by a file or by anonymous memory.
// The bytes must not be touched after Close.
type Mapping struct {
	data     []byte
	writable bool
	closed   atomic.Bool
	release  func() error
}

// Open maps the file at path read-only and shared.
func Open(path string) (*Mapping, error) {
	return mapPath(path, false)
}

// OpenPrivate maps the file at path copy-on-write. Writes stay in this
// process and never reach the file.
func OpenPrivate(path string) (*Mapping, error) {
	return mapPath(path, true)
}

func mapPath(path string, private bool) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{writable: private}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrInvalidSize, path, size)
	}

	data, release, err := mapFile(f, int(size), private)
	if err != nil {
		return nil, fmt.Errorf("mmap: map %s: %w", path, err)
	}
	return &Mapping{data: data, writable: private, release: release}, nil
}

// MapAnon returns size zeroed, writable bytes outside the Go heap.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, release, err := mapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("mmap: anonymous %d bytes: %w", size, err)
	}
	return &Mapping{data: data, writable: true, release: release}, nil
}

// Close unmaps the bytes. Calling it again is a no-op.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.release == nil {
		return nil
	}
	return m.release()
}

// Bytes returns the mapped bytes, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

func (m *Mapping) Size() int { return len(m.data) }

// Writable reports whether the bytes may be modified in place.
func (m *Mapping) Writable() bool { return m.writable }

// Advise hints the expected access pattern for the whole mapping.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return madvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case m.closed.Load():
		return 0, ErrClosed
	case off < 0:
		return 0, ErrInvalidOffset
	case off >= int64(len(m.data)):
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
