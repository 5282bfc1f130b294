package blobarena

import "iter"

type setEntry[T comparable] struct {
	link
	Value T
}

func (e *setEntry[T]) chain() *link { return &e.link }

// Set is a handle to a fixed-capacity hash set stored in a Container.
type Set[T comparable] uint32

// AllocSet allocates an empty set for up to capacity values.
func AllocSet[T comparable](c Container, capacity int) (Set[T], error) {
	if err := checkKey[T](); err != nil {
		return 0, err
	}
	off, err := allocTable[setEntry[T], *setEntry[T]](c, "set", capacity)
	if err != nil {
		return 0, err
	}
	return Set[T](off), nil
}

// Raw returns the untyped handle.
func (s Set[T]) Raw() RawPtr { return RawPtr(s) }

// IsNil reports whether s is the nil handle.
func (s Set[T]) IsNil() bool { return s == 0 }

func (s Set[T]) table(c Container) (table[setEntry[T], *setEntry[T]], bool) {
	if s == 0 || !c.IsValid() {
		return table[setEntry[T], *setEntry[T]]{}, false
	}
	return openTable[setEntry[T], *setEntry[T]](c, uint32(s)), true
}

func (s Set[T]) lookup(t table[setEntry[T], *setEntry[T]], code int32, value T) int32 {
	return t.find(code, func(e *setEntry[T]) bool { return e.Value == value })
}

// Add inserts value. It reports false if value was already present.
func (s Set[T]) Add(c Container, value T) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	t, ok := s.table(c)
	if !ok {
		return false, errNilHandle("set")
	}

	code := keyCode(value)
	if s.lookup(t, code, value) >= 0 {
		return false, nil
	}
	i, err := t.claim("set", code, true)
	if err != nil {
		return false, err
	}
	t.entries[i].Value = value
	return true, nil
}

// Contains reports whether value is present.
func (s Set[T]) Contains(c Container, value T) bool {
	t, ok := s.table(c)
	return ok && s.lookup(t, keyCode(value), value) >= 0
}

// Len returns the number of values.
func (s Set[T]) Len(c Container) int {
	t, ok := s.table(c)
	if !ok {
		return 0
	}
	return int(t.count())
}

// Cap returns the fixed capacity.
func (s Set[T]) Cap(c Container) int {
	t, ok := s.table(c)
	if !ok {
		return 0
	}
	return int(t.hdr.BucketCount)
}

// All iterates over the values in insertion order.
func (s Set[T]) All(c Container) iter.Seq[T] {
	return func(yield func(T) bool) {
		t, ok := s.table(c)
		if !ok {
			return
		}
		for _, e := range t.live() {
			if !yield(e.Value) {
				return
			}
		}
	}
}
