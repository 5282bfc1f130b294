package blobarena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/blobarena/internal/arena"
)

var (
	// ErrInvalidArgument is returned for non-positive capacities or sizes and
	// for element types that cannot live in a blob.
	ErrInvalidArgument = arena.ErrInvalidArgument

	// ErrInvalidOperation is returned when a Container is used before it was
	// created or after it was disposed.
	ErrInvalidOperation = arena.ErrInvalidOperation

	// ErrMemoryLimitExceeded is returned when the configured resource
	// controller refuses an arena growth.
	ErrMemoryLimitExceeded = arena.ErrMemoryLimitExceeded

	// ErrCapacityExceeded is returned when inserting into a full map, set or
	// multimap. Hash containers never resize.
	ErrCapacityExceeded = errors.New("blobarena: capacity exceeded")

	// ErrKeyNotFound is returned by Map.Get for an absent key.
	ErrKeyNotFound = errors.New("blobarena: key not found")

	// ErrCorrupt is returned by Verify when a container's chains are damaged.
	ErrCorrupt = errors.New("blobarena: corrupt container")
)

// CapacityError indicates an insert into a full hash container.
//
// errors.Is(err, ErrCapacityExceeded) reports true for it.
type CapacityError struct {
	Kind     string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("blobarena: %s capacity exceeded: all %d entries in use", e.Kind, e.Capacity)
}

// Is matches ErrCapacityExceeded.
func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// KeyNotFoundError indicates a lookup of an absent key.
//
// errors.Is(err, ErrKeyNotFound) reports true for it.
type KeyNotFoundError struct {
	Key any
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("blobarena: key not found: %v", e.Key)
}

// Is matches ErrKeyNotFound.
func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// UnsupportedTypeError indicates an element type that cannot be stored in a blob.
//
// The original underlying error can be accessed via errors.Unwrap.
type UnsupportedTypeError struct {
	Type   string
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("blobarena: unsupported type %s: %s", e.Type, e.Reason)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrInvalidArgument }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func errNilHandle(kind string) error {
	return fmt.Errorf("%w: nil %s handle", ErrInvalidArgument, kind)
}
