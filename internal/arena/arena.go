package arena

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/hupe1980/blobarena/internal/conv"
	"github.com/hupe1980/blobarena/internal/mmap"
)

var (
	// ErrInvalidArgument is returned for non-positive capacities, negative sizes
	// and requests beyond MaxCapacity.
	ErrInvalidArgument = errors.New("arena: invalid argument")
	// ErrInvalidOperation is returned when the arena is used before Init, after
	// Free, or initialized twice.
	ErrInvalidOperation = errors.New("arena: invalid operation")
	// ErrMemoryLimitExceeded is returned when the configured MemoryAcquirer
	// refuses a growth request.
	ErrMemoryLimitExceeded = errors.New("arena: memory limit exceeded")
)

const (
	// Alignment is the alignment of every allocation (8 bytes).
	Alignment = 8
	// MinCapacity is the capacity an empty arena grows to first.
	MinCapacity = 64
	// MaxCapacity is the largest addressable arena: offsets are uint32, and
	// on 32-bit platforms a buffer is further bounded by int.
	MaxCapacity = min(math.MaxUint32, math.MaxInt)
)

// Allocator selects the memory backing new buffers.
type Allocator uint8

const (
	// Heap backs the arena with a pointer-free Go slice. The GC never scans it.
	Heap Allocator = iota + 1
	// Mmap backs the arena with an anonymous mapping outside the Go heap.
	Mmap
)

// DefaultAllocator is used when no allocator is specified.
const DefaultAllocator = Mmap

func (al Allocator) String() string {
	switch al {
	case Heap:
		return "heap"
	case Mmap:
		return "mmap"
	default:
		return fmt.Sprintf("allocator(%d)", uint8(al))
	}
}

func (al Allocator) valid() bool {
	return al == Heap || al == Mmap
}

// MemoryAcquirer is an interface for budgeting memory.
// resource.Controller satisfies it.
type MemoryAcquirer interface {
	TryAcquireMemory(bytes int64) bool
	ReleaseMemory(bytes int64)
}

// Stats tracks arena memory usage.
type Stats struct {
	Allocator Allocator
	Capacity  int    // Current: bytes reserved
	Used      int    // Current: bytes handed out, including alignment padding
	Grows     uint64 // Historical: buffer reallocations
	Allocs    uint64 // Historical: allocations
}

// buffer is one backing allocation. mapping is nil for heap buffers.
type buffer struct {
	data    []byte
	mapping *mmap.Mapping
}

func newBuffer(al Allocator, size int) (buffer, error) {
	switch al {
	case Heap:
		// []uint64 guarantees 8-byte alignment of the base address.
		words := make([]uint64, (size+Alignment-1)/Alignment)
		data := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size) //nolint:gosec // unsafe is required for arena implementation
		return buffer{data: data}, nil
	case Mmap:
		m, err := mmap.MapAnon(size)
		if err != nil {
			return buffer{}, fmt.Errorf("failed to map anonymous memory for arena: %w", err)
		}
		return buffer{data: m.Bytes()[:size:size], mapping: m}, nil
	default:
		return buffer{}, fmt.Errorf("%w: unknown allocator %s", ErrInvalidArgument, al)
	}
}

func (b *buffer) release() {
	if b.mapping != nil {
		_ = b.mapping.Close()
	}
	b.data = nil
	b.mapping = nil
}

// Arena is a contiguous, growable memory arena addressed by uint32 offsets.
type Arena struct {
	buf         buffer
	used        int
	allocator   Allocator
	initialized bool

	acquirer MemoryAcquirer
	acquired int64
	onGrow   func(oldCap, newCap, used int)

	grows  uint64
	allocs uint64
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer charges every capacity increase against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithGrowHook registers fn to be called after every buffer reallocation.
func WithGrowHook(fn func(oldCap, newCap, used int)) Option {
	return func(a *Arena) {
		a.onGrow = fn
	}
}

// New creates and initializes an Arena.
func New(allocator Allocator, capacity int, opts ...Option) (*Arena, error) {
	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.Init(allocator, capacity); err != nil {
		return nil, err
	}
	return a, nil
}

// FromBytes creates an Arena holding a copy of data as its used prefix.
func FromBytes(allocator Allocator, data []byte, opts ...Option) (*Arena, error) {
	a, err := New(allocator, max(len(data), MinCapacity), opts...)
	if err != nil {
		return nil, err
	}
	copy(a.buf.data, data)
	a.used = len(data)
	return a, nil
}

// FromMapping creates an Arena that adopts data, a writable view into m, as
// its used prefix without copying. The arena closes m when it grows past it or
// is freed. Later growth uses allocator.
func FromMapping(m *mmap.Mapping, data []byte, allocator Allocator, opts ...Option) (*Arena, error) {
	if m == nil || !m.Writable() {
		return nil, fmt.Errorf("%w: mapping must be writable", ErrInvalidArgument)
	}
	if len(data) == 0 || len(data) > MaxCapacity {
		return nil, fmt.Errorf("%w: mapped size %d", ErrInvalidArgument, len(data))
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(data)))%Alignment != 0 { //nolint:gosec // alignment check
		return nil, fmt.Errorf("%w: mapped data is not %d-byte aligned", ErrInvalidArgument, Alignment)
	}
	if !allocator.valid() {
		return nil, fmt.Errorf("%w: unknown allocator %s", ErrInvalidArgument, allocator)
	}

	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.acquire(int64(len(data))); err != nil {
		return nil, err
	}
	a.buf = buffer{data: data[:len(data):len(data)], mapping: m}
	a.used = len(data)
	a.allocator = allocator
	a.initialized = true
	return a, nil
}

// Init allocates the initial buffer. It fails if the arena is already
// initialized or capacity is not positive.
func (a *Arena) Init(allocator Allocator, capacity int) error {
	if a.initialized {
		return fmt.Errorf("%w: arena is already initialized", ErrInvalidOperation)
	}
	if capacity <= 0 || capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d", ErrInvalidArgument, capacity)
	}
	if allocator == 0 {
		allocator = DefaultAllocator
	}
	if !allocator.valid() {
		return fmt.Errorf("%w: unknown allocator %s", ErrInvalidArgument, allocator)
	}

	if err := a.acquire(int64(capacity)); err != nil {
		return err
	}
	buf, err := newBuffer(allocator, capacity)
	if err != nil {
		a.release(int64(capacity))
		return err
	}

	a.buf = buf
	a.used = 0
	a.allocator = allocator
	a.initialized = true
	return nil
}

// IsValid reports whether the arena is initialized and not freed.
func (a *Arena) IsValid() bool {
	return a != nil && a.initialized
}

func (a *Arena) acquire(bytes int64) error {
	if a.acquirer == nil || bytes <= 0 {
		return nil
	}
	if !a.acquirer.TryAcquireMemory(bytes) {
		return fmt.Errorf("%w: cannot reserve %d bytes", ErrMemoryLimitExceeded, bytes)
	}
	a.acquired += bytes
	return nil
}

func (a *Arena) release(bytes int64) {
	if a.acquirer == nil || bytes <= 0 {
		return
	}
	a.acquirer.ReleaseMemory(bytes)
	a.acquired -= bytes
}

func align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// AllocBytes reserves size zeroed bytes and returns their offset.
// The arena grows first if needed.
func (a *Arena) AllocBytes(size int) (uint32, error) {
	if !a.IsValid() {
		return 0, fmt.Errorf("%w: arena is not initialized", ErrInvalidOperation)
	}
	if size < 0 {
		return 0, fmt.Errorf("%w: size %d", ErrInvalidArgument, size)
	}

	start := align(a.used)
	end := start + size
	if end > MaxCapacity {
		return 0, fmt.Errorf("%w: arena would exceed %d bytes", ErrInvalidArgument, uint64(MaxCapacity))
	}
	if end > len(a.buf.data) {
		if err := a.grow(end); err != nil {
			return 0, err
		}
	}

	clear(a.buf.data[a.used:end])
	off, err := conv.To[uint32](start)
	if err != nil {
		return 0, err
	}
	a.used = end
	a.allocs++
	return off, nil
}

// grow applies the growth policy: at least required, otherwise double.
func (a *Arena) grow(required int) error {
	capacity := len(a.buf.data)
	next := MinCapacity
	if capacity > 0 {
		next = capacity * 2
	}
	return a.Reserve(min(max(required, next), MaxCapacity))
}

// Reserve ensures the buffer holds at least newCapacity bytes. It is a no-op
// if the arena is already that large. Used bytes are copied verbatim, so
// previously issued offsets stay valid.
func (a *Arena) Reserve(newCapacity int) error {
	if !a.IsValid() {
		return fmt.Errorf("%w: arena is not initialized", ErrInvalidOperation)
	}
	oldCapacity := len(a.buf.data)
	if newCapacity <= oldCapacity {
		return nil
	}
	if newCapacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidArgument, newCapacity, uint64(MaxCapacity))
	}

	delta := int64(newCapacity - oldCapacity)
	if err := a.acquire(delta); err != nil {
		return err
	}
	next, err := newBuffer(a.allocator, newCapacity)
	if err != nil {
		a.release(delta)
		return err
	}

	copy(next.data, a.buf.data[:a.used])
	a.buf.release()
	a.buf = next
	a.grows++

	if a.onGrow != nil {
		a.onGrow(oldCapacity, newCapacity, a.used)
	}
	return nil
}

// Free releases the buffer. It is idempotent. All offsets issued by the
// arena become invalid.
func (a *Arena) Free() {
	if a == nil || !a.initialized {
		return
	}
	a.buf.release()
	a.release(a.acquired)
	a.used = 0
	a.initialized = false
}

// Pointer returns the address of the byte at off.
// It performs no bounds checking. The address is invalidated by the next
// allocation that grows the arena.
func (a *Arena) Pointer(off uint32) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.buf.data)), off) //nolint:gosec // unsafe is required for arena implementation
}

// Bytes returns n bytes starting at off. It panics if the range lies outside
// the buffer.
func (a *Arena) Bytes(off uint32, n int) []byte {
	return a.buf.data[int(off) : int(off)+n : int(off)+n]
}

// Data returns the used prefix of the buffer.
func (a *Arena) Data() []byte {
	if !a.IsValid() {
		return nil
	}
	return a.buf.data[:a.used:a.used]
}

// Len returns the number of bytes in use.
func (a *Arena) Len() int {
	if !a.IsValid() {
		return 0
	}
	return a.used
}

// Cap returns the current capacity in bytes.
func (a *Arena) Cap() int {
	if !a.IsValid() {
		return 0
	}
	return len(a.buf.data)
}

// Allocator returns the allocator used for new buffers.
func (a *Arena) Allocator() Allocator {
	return a.allocator
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		Allocator: a.allocator,
		Capacity:  a.Cap(),
		Used:      a.Len(),
		Grows:     a.grows,
		Allocs:    a.allocs,
	}
}

// Usage returns the memory usage percentage.
func (a *Arena) Usage() float64 {
	c := a.Cap()
	if c == 0 {
		return 0
	}
	return float64(a.Len()) / float64(c) * 100
}

func (a *Arena) String() string {
	stats := a.Stats()
	return fmt.Sprintf(
		"Arena{allocator: %s, capacity: %.2f MB, used: %.2f MB, usage: %.1f%%, grows: %d, allocs: %d}",
		stats.Allocator,
		float64(stats.Capacity)/(1024*1024),
		float64(stats.Used)/(1024*1024),
		a.Usage(),
		stats.Grows,
		stats.Allocs,
	)
}
