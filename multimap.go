package blobarena

import "iter"

// multiEntry is either the head of a key (linked into its bucket chain) or a
// later value for a key (linked only from the previous value's ValueNext).
// Value entries never sit in a bucket chain, so the first value of a key
// keeps the index of the key's last value in Next.
type multiEntry[K comparable, V comparable] struct {
	link
	ValueNext int32
	Key       K
	Value     V
}

func (e *multiEntry[K, V]) chain() *link { return &e.link }

// MultiMap is a handle to a fixed-capacity hash multimap stored in a
// Container. Every Add consumes one entry, so the capacity bounds the total
// number of values across all keys.
type MultiMap[K comparable, V comparable] uint32

// AllocMultiMap allocates an empty multimap for up to capacity values.
func AllocMultiMap[K comparable, V comparable](c Container, capacity int) (MultiMap[K, V], error) {
	if err := checkKey[K](); err != nil {
		return 0, err
	}
	if err := checkValue[V](); err != nil {
		return 0, err
	}
	off, err := allocTable[multiEntry[K, V], *multiEntry[K, V]](c, "multimap", capacity)
	if err != nil {
		return 0, err
	}
	return MultiMap[K, V](off), nil
}

// Raw returns the untyped handle.
func (m MultiMap[K, V]) Raw() RawPtr { return RawPtr(m) }

// IsNil reports whether m is the nil handle.
func (m MultiMap[K, V]) IsNil() bool { return m == 0 }

func (m MultiMap[K, V]) table(c Container) (table[multiEntry[K, V], *multiEntry[K, V]], bool) {
	if m == 0 || !c.IsValid() {
		return table[multiEntry[K, V], *multiEntry[K, V]]{}, false
	}
	return openTable[multiEntry[K, V], *multiEntry[K, V]](c, uint32(m)), true
}

// head returns the index of the first entry stored under key, or -1.
func (m MultiMap[K, V]) head(t table[multiEntry[K, V], *multiEntry[K, V]], code int32, key K) int32 {
	return t.find(code, func(e *multiEntry[K, V]) bool { return e.Key == key })
}

// Add appends value to the values of key. Duplicates are kept.
func (m MultiMap[K, V]) Add(c Container, key K, value V) error {
	if err := c.check(); err != nil {
		return err
	}
	t, ok := m.table(c)
	if !ok {
		return errNilHandle("multimap")
	}

	code := keyCode(key)
	h := m.head(t, code, key)
	i, err := t.claim("multimap", code, h < 0)
	if err != nil {
		return err
	}
	e := &t.entries[i]
	e.ValueNext = -1
	e.Key = key
	e.Value = value

	if h >= 0 {
		head := &t.entries[h]
		if head.ValueNext < 0 {
			head.ValueNext = i
		} else {
			t.entries[t.entries[head.ValueNext].Next].ValueNext = i
		}
		t.entries[head.ValueNext].Next = i
	}
	return nil
}

// ContainsKey reports whether key has at least one value.
func (m MultiMap[K, V]) ContainsKey(c Container, key K) bool {
	t, ok := m.table(c)
	return ok && m.head(t, keyCode(key), key) >= 0
}

// ContainsValue reports whether value is stored under key.
func (m MultiMap[K, V]) ContainsValue(c Container, key K, value V) bool {
	for v := range m.Values(c, key) {
		if v == value {
			return true
		}
	}
	return false
}

// ValueCount returns the number of values stored under key.
func (m MultiMap[K, V]) ValueCount(c Container, key K) int {
	n := 0
	for range m.Values(c, key) {
		n++
	}
	return n
}

// Values iterates over the values of key in insertion order.
func (m MultiMap[K, V]) Values(c Container, key K) iter.Seq[V] {
	return func(yield func(V) bool) {
		t, ok := m.table(c)
		if !ok {
			return
		}
		for i := m.head(t, keyCode(key), key); i >= 0; i = t.entries[i].ValueNext {
			if !yield(t.entries[i].Value) {
				return
			}
		}
	}
}

// Len returns the total number of values across all keys.
func (m MultiMap[K, V]) Len(c Container) int {
	t, ok := m.table(c)
	if !ok {
		return 0
	}
	return int(t.count())
}

// Cap returns the fixed capacity.
func (m MultiMap[K, V]) Cap(c Container) int {
	t, ok := m.table(c)
	if !ok {
		return 0
	}
	return int(t.hdr.BucketCount)
}

// All iterates over key/value pairs in insertion order.
func (m MultiMap[K, V]) All(c Container) iter.Seq2[K, V] {
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
