package blobarena

import "iter"

type mapEntry[K comparable, V any] struct {
	link
	Key   K
	Value V
}

func (e *mapEntry[K, V]) chain() *link { return &e.link }

// Map is a handle to a fixed-capacity hash map stored in a Container.
//
// The capacity chosen at allocation is both the bucket count and the
// maximum number of keys; inserting beyond it fails with ErrCapacityExceeded.
// Enumeration follows insertion order.
type Map[K comparable, V any] uint32

// AllocMap allocates an empty map for up to capacity keys.
func AllocMap[K comparable, V any](c Container, capacity int) (Map[K, V], error) {
	if err := checkKey[K](); err != nil {
		return 0, err
	}
	if err := checkValue[V](); err != nil {
		return 0, err
	}
	off, err := allocTable[mapEntry[K, V], *mapEntry[K, V]](c, "map", capacity)
	if err != nil {
		return 0, err
	}
	return Map[K, V](off), nil
}

// Raw returns the untyped handle.
func (m Map[K, V]) Raw() RawPtr { return RawPtr(m) }

// IsNil reports whether m is the nil handle.
func (m Map[K, V]) IsNil() bool { return m == 0 }

func (m Map[K, V]) table(c Container) (table[mapEntry[K, V], *mapEntry[K, V]], bool) {
	if m == 0 || !c.IsValid() {
		return table[mapEntry[K, V], *mapEntry[K, V]]{}, false
	}
	return openTable[mapEntry[K, V], *mapEntry[K, V]](c, uint32(m)), true
}

func (m Map[K, V]) lookup(t table[mapEntry[K, V], *mapEntry[K, V]], key K) int32 {
	return t.find(keyCode(key), func(e *mapEntry[K, V]) bool { return e.Key == key })
}

// TryGetValue returns the value stored under key.
func (m Map[K, V]) TryGetValue(c Container, key K) (V, bool) {
	var zero V
	t, ok := m.table(c)
	if !ok {
		return zero, false
	}
	if i := m.lookup(t, key); i >= 0 {
		return t.entries[i].Value, true
	}
	return zero, false
}

// HasKey reports whether key is present.
func (m Map[K, V]) HasKey(c Container, key K) bool {
	t, ok := m.table(c)
	return ok && m.lookup(t, key) >= 0
}

// AddOrUpdate stores value under key. It reports true if key was inserted
// and false if an existing value was overwritten.
func (m Map[K, V]) AddOrUpdate(c Container, key K, value V) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	t, ok := m.table(c)
	if !ok {
		return false, errNilHandle("map")
	}

	code := keyCode(key)
	if i := t.find(code, func(e *mapEntry[K, V]) bool { return e.Key == key }); i >= 0 {
		t.entries[i].Value = value
		return false, nil
	}
	i, err := t.claim("map", code, true)
	if err != nil {
		return false, err
	}
	t.entries[i].Key = key
	t.entries[i].Value = value
	return true, nil
}

// Get returns the value under key or a *KeyNotFoundError.
func (m Map[K, V]) Get(c Container, key K) (V, error) {
	if err := c.check(); err != nil {
		var zero V
		return zero, err
	}
	v, ok := m.TryGetValue(c, key)
	if !ok {
		return v, &KeyNotFoundError{Key: key}
	}
	return v, nil
}

// Set stores value under key, inserting it if needed.
func (m Map[K, V]) Set(c Container, key K, value V) error {
	_, err := m.AddOrUpdate(c, key, value)
	return err
}

// Ref returns a pointer to the value under key, or nil if absent. The
// pointer is invalidated by the next allocation on c.
func (m Map[K, V]) Ref(c Container, key K) *V {
	t, ok := m.table(c)
	if !ok {
		return nil
	}
	if i := m.lookup(t, key); i >= 0 {
		return &t.entries[i].Value
	}
	return nil
}

// Len returns the number of keys.
func (m Map[K, V]) Len(c Container) int {
	t, ok := m.table(c)
	if !ok {
		return 0
	}
	return int(t.count())
}

// Cap returns the fixed capacity.
func (m Map[K, V]) Cap(c Container) int {
	t, ok := m.table(c)
	if !ok {
		return 0
	}
	return int(t.hdr.BucketCount)
}

// All iterates over key/value pairs in insertion order.
func (m Map[K, V]) All(c Container) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t, ok := m.table(c)
		if !ok {
			return
		}
		for _, e := range t.live() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// AllRefs iterates over keys and pointers to their values in insertion
// order. Values may be modified through the pointers; allocating on c during
// the iteration invalidates them.
func (m Map[K, V]) AllRefs(c Container) iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		t, ok := m.table(c)
		if !ok {
			return
		}
		live := t.live()
		for i := range live {
			if !yield(live[i].Key, &live[i].Value) {
				return
			}
		}
	}
}
