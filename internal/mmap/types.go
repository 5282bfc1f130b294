package mmap

import "errors"

// AccessPattern is an access hint passed to the kernel.
type AccessPattern int

const (
	// AccessDefault clears earlier hints.
	AccessDefault AccessPattern = iota
	// AccessSequential favors read-ahead, e.g. while decoding a snapshot.
	AccessSequential
	// AccessRandom disables read-ahead. Hash lookups into a mapped arena
	// touch pages at random.
	AccessRandom
)

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files that are empty or too large to map.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrOutOfBounds is returned for a region outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
