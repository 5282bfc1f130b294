package blobarena

import (
	"fmt"
	"math"

	"github.com/hupe1980/blobarena/internal/arena"
	"github.com/hupe1980/blobarena/internal/hash"
)

// emptyHash marks an entry slot of a map, set or multimap that was never
// written. Computed hash codes are non-negative, so it never matches a live
// entry.
const emptyHash int32 = math.MinInt32

// tableHeader starts every map, set and multimap.
type tableHeader struct {
	Count       int32
	BucketCount int32
}

const tableHeaderSize = 8

// link is the part of an entry shared by every hash container: its hash code
// and the index of the next entry in the same bucket (-1 ends the chain).
type link struct {
	HashCode int32
	Next     int32
}

// chained is satisfied by pointers to entry types that embed a link.
type chained[E any] interface {
	*E
	chain() *link
}

// table is a view over a hash container laid out as
//
//	header | buckets int32[n] | pad to 8 | entries E[n]
//
// Bucket slots hold entry index + 1; zero is an empty bucket. The view
// aliases the arena and must be rebuilt after any allocation.
type table[E any, P chained[E]] struct {
	hdr     *tableHeader
	buckets []int32
	entries []E
}

func entriesOffset(buckets int) int {
	return (tableHeaderSize + 4*buckets + arena.Alignment - 1) &^ (arena.Alignment - 1)
}

// tableSize returns the byte size of a table with n buckets, or -1 if it
// cannot fit an arena.
func tableSize[E any](n int) int {
	elem := arena.SizeOf[E]()
	if n > (arena.MaxCapacity-entriesOffset(0))/(4+elem) {
		return -1
	}
	return entriesOffset(n) + n*elem
}

// allocTable allocates an empty table with capacity buckets and entries and
// marks every entry slot with emptyHash.
func allocTable[E any, P chained[E]](c Container, kind string, capacity int) (uint32, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	if capacity <= 0 || capacity > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s capacity %d", ErrInvalidArgument, kind, capacity)
	}
	size := tableSize[E](capacity)
	if size < 0 {
		return 0, fmt.Errorf("%w: %s of %d entries does not fit an arena", ErrInvalidArgument, kind, capacity)
	}

	off, err := c.alloc(kind, size)
	if err != nil {
		return 0, err
	}
	arena.Store(c.a, off, tableHeader{BucketCount: int32(capacity)}) //nolint:gosec // checked above

	t := openTable[E, P](c, off)
	for i := range t.entries {
		t.link(int32(i)).HashCode = emptyHash //nolint:gosec // bounded by BucketCount
	}
	return off, nil
}

func openTable[E any, P chained[E]](c Container, off uint32) table[E, P] {
	hdr := arena.Ref[tableHeader](c.a, off)
	n := int(hdr.BucketCount)
	return table[E, P]{
		hdr:     hdr,
		buckets: arena.Slice[int32](c.a, off+tableHeaderSize, n),
		entries: arena.Slice[E](c.a, off+uint32(entriesOffset(n)), n), //nolint:gosec // bounded by arena size
	}
}

func (t table[E, P]) count() int32 { return t.hdr.Count }

func (t table[E, P]) link(i int32) *link {
	return P(&t.entries[i]).chain()
}

// find walks the chain of code's bucket and returns the index of the first
// entry with that code accepted by match, or -1.
func (t table[E, P]) find(code int32, match func(*E) bool) int32 {
	i := t.buckets[hash.Bucket(code, t.hdr.BucketCount)] - 1
	for i >= 0 {
		l := t.link(i)
		if l.HashCode == code && match(&t.entries[i]) {
			return i
		}
		i = l.Next
	}
	return -1
}

// claim claims the next free entry. If chain is set the entry becomes the
// new head of its bucket, otherwise it is left unlinked with Next = -1.
// The caller fills in the payload.
func (t table[E, P]) claim(kind string, code int32, chain bool) (int32, error) {
	i := t.hdr.Count
	if i >= t.hdr.BucketCount {
		return -1, &CapacityError{Kind: kind, Capacity: int(t.hdr.BucketCount)}
	}
	l := t.link(i)
	l.HashCode = code
	l.Next = -1
	if chain {
		b := hash.Bucket(code, t.hdr.BucketCount)
		l.Next = t.buckets[b] - 1
		t.buckets[b] = i + 1
	}
	t.hdr.Count++
	return i, nil
}

// live returns the entries in allocation order.
func (t table[E, P]) live() []E {
	return t.entries[:t.hdr.Count]
}

// keyCode hashes the raw bytes of a key.
func keyCode[K any](key K) int32 {
	return hash.Code(arena.BytesOf(&key))
}
