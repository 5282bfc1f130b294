package blobarena

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/blobarena/internal/arena"
	"github.com/hupe1980/blobarena/internal/hash"
)

// verifyTable checks the header and every bucket chain of the table at off.
// It returns the opened table and the set of entries reached from a bucket.
func verifyTable[E any, P chained[E]](c Container, kind string, off uint32) (table[E, P], *roaring.Bitmap, error) {
	var zero table[E, P]
	if err := c.check(); err != nil {
		return zero, nil, err
	}
	if off == 0 {
		return zero, nil, errNilHandle(kind)
	}

	used := c.Len()
	if off%arena.Alignment != 0 || int(off)+tableHeaderSize > used {
		return zero, nil, corruptf("%s header at %#x lies outside the blob", kind, off)
	}
	hdr := arena.Load[tableHeader](c.a, off)
	if hdr.BucketCount <= 0 || hdr.Count < 0 || hdr.Count > hdr.BucketCount {
		return zero, nil, corruptf("%s header count=%d buckets=%d", kind, hdr.Count, hdr.BucketCount)
	}
	if size := tableSize[E](int(hdr.BucketCount)); size < 0 || int(off)+size > used {
		return zero, nil, corruptf("%s of %d buckets at %#x overruns the blob", kind, hdr.BucketCount, off)
	}

	t := openTable[E, P](c, off)
	for i := hdr.Count; i < hdr.BucketCount; i++ {
		if code := t.link(i).HashCode; code != emptyHash {
			return zero, nil, corruptf("%s slot %d beyond count has hash %d", kind, i, code)
		}
	}

	reached := roaring.New()
	for b, slot := range t.buckets {
		if slot < 0 || slot > hdr.Count {
			return zero, nil, corruptf("%s bucket %d holds entry %d of %d", kind, b, slot-1, hdr.Count)
		}
		for i := slot - 1; i >= 0; i = t.link(i).Next {
			if i >= hdr.Count {
				return zero, nil, corruptf("%s chain of bucket %d reaches entry %d of %d", kind, b, i, hdr.Count)
			}
			if !reached.CheckedAdd(uint32(i)) { //nolint:gosec // non-negative
				return zero, nil, corruptf("%s entry %d is reached twice", kind, i)
			}
			l := t.link(i)
			if l.HashCode < 0 || hash.Bucket(l.HashCode, hdr.BucketCount) != int32(b) { //nolint:gosec // bounded by BucketCount
				return zero, nil, corruptf("%s entry %d with hash %d sits in bucket %d", kind, i, l.HashCode, b)
			}
			if l.Next < -1 {
				return zero, nil, corruptf("%s entry %d has next %d", kind, i, l.Next)
			}
		}
	}
	return t, reached, nil
}

func misplaced(kind string, i, found int32) error {
	if found < 0 {
		return corruptf("%s entry %d is not reachable from its bucket", kind, i)
	}
	return corruptf("%s entry %d duplicates entry %d", kind, i, found)
}

func checkReached(kind string, reached *roaring.Bitmap, count int32) error {
	if n := reached.GetCardinality(); n != uint64(count) { //nolint:gosec // count is non-negative
		return corruptf("%s reaches %d of %d entries", kind, n, count)
	}
	return nil
}

// Verify checks the structure of the map: header bounds, chain indexes,
// cycles, bucket placement, stored hash codes, duplicate keys, unwritten
// slots and unreachable entries. It reports ErrCorrupt on the first violation.
func (m Map[K, V]) Verify(c Container) error {
	t, reached, err := verifyTable[mapEntry[K, V], *mapEntry[K, V]](c, "map", uint32(m))
	if err != nil {
		return err
	}
	for i := range t.live() {
		e := &t.entries[i]
		if code := keyCode(e.Key); code != e.HashCode {
			return corruptf("map entry %d stores hash %d, key hashes to %d", i, e.HashCode, code)
		}
		if j := m.lookup(t, e.Key); j != int32(i) { //nolint:gosec // bounded by BucketCount
			return misplaced("map", int32(i), j) //nolint:gosec // bounded by BucketCount
		}
	}
	return checkReached("map", reached, t.count())
}

// Verify checks the structure of the set. See Map.Verify.
func (s Set[T]) Verify(c Container) error {
	t, reached, err := verifyTable[setEntry[T], *setEntry[T]](c, "set", uint32(s))
	if err != nil {
		return err
	}
	for i, e := range t.live() {
		code := keyCode(e.Value)
		if code != e.HashCode {
			return corruptf("set entry %d stores hash %d, value hashes to %d", i, e.HashCode, code)
		}
		if j := s.lookup(t, code, e.Value); j != int32(i) { //nolint:gosec // bounded by BucketCount
			return misplaced("set", int32(i), j) //nolint:gosec // bounded by BucketCount
		}
	}
	return checkReached("set", reached, t.count())
}

// Verify checks the structure of the multimap, including every value chain.
// See Map.Verify.
func (m MultiMap[K, V]) Verify(c Container) error {
	t, heads, err := verifyTable[multiEntry[K, V], *multiEntry[K, V]](c, "multimap", uint32(m))
	if err != nil {
		return err
	}

	reached := heads.Clone()
	for it := heads.Iterator(); it.HasNext(); {
		h := int32(it.Next()) //nolint:gosec // bounded by count
		head := &t.entries[h]
		if code := keyCode(head.Key); code != head.HashCode {
			return corruptf("multimap entry %d stores hash %d, key hashes to %d", h, head.HashCode, code)
		}
		if j := m.head(t, head.HashCode, head.Key); j != h {
			return corruptf("multimap entry %d duplicates key of entry %d", h, j)
		}
		last := int32(-1)
		for i := head.ValueNext; i >= 0; i = t.entries[i].ValueNext {
			if i >= t.count() {
				return corruptf("multimap value chain of entry %d reaches entry %d of %d", h, i, t.count())
			}
			if !reached.CheckedAdd(uint32(i)) { //nolint:gosec // non-negative
				return corruptf("multimap entry %d is reached twice", i)
			}
			e := &t.entries[i]
			if e.Key != head.Key || e.HashCode != head.HashCode {
				return corruptf("multimap entry %d is chained under a different key", i)
			}
			if i != head.ValueNext && e.Next != -1 {
				return corruptf("multimap value entry %d is linked into a bucket", i)
			}
			last = i
		}
		if last >= 0 && t.entries[head.ValueNext].Next != last {
			return corruptf("multimap entry %d records last value %d, chain ends at %d", h, t.entries[head.ValueNext].Next, last)
		}
	}
	return checkReached("multimap", reached, t.count())
}
