package blobarena

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/blobarena/internal/arena"
	"github.com/hupe1980/blobarena/internal/mmap"
)

// Stats reports arena memory usage.
type Stats = arena.Stats

const (
	// headerMagic marks the first word of every container arena ("BLOB").
	headerMagic uint32 = 0x424C4F42
	headerSize         = 8
)

// blobHeader occupies offset 0 of every container arena. Because it is always
// there, no handle ever points at offset 0 and a zero handle means nil.
type blobHeader struct {
	Magic uint32
	Root  RawPtr
}

// Container owns one arena and is the only way to allocate blob structures
// and to dereference handles.
//
// Container is a small value. Copies share the same arena, so disposing any
// copy invalidates all of them.
type Container struct {
	a   *arena.Arena
	log *Logger
}

// New creates a Container whose arena starts with capacity bytes.
func New(capacity int, opts ...Option) (Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if capacity <= 0 {
		return Container{}, fmt.Errorf("%w: capacity %d", ErrInvalidArgument, capacity)
	}

	c := Container{log: o.logger}
	a, err := arena.New(o.allocator, capacity, arenaOptions(&o)...)
	if err != nil {
		return Container{}, err
	}
	c.a = a

	off, err := arena.Alloc[blobHeader](a)
	if err != nil {
		a.Free()
		return Container{}, err
	}
	arena.Store(a, off, blobHeader{Magic: headerMagic})
	return c, nil
}

// FromBytes creates a Container holding a copy of data, which must be the
// Bytes of another Container.
func FromBytes(data []byte, opts ...Option) (Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkHeader(data); err != nil {
		return Container{}, err
	}

	c := Container{log: o.logger}
	a, err := arena.FromBytes(o.allocator, data, arenaOptions(&o)...)
	if err != nil {
		return Container{}, err
	}
	c.a = a
	return c, nil
}

// FromMapping creates a Container that uses data, a writable view into m,
// in place. The Container takes ownership of m.
func FromMapping(m *mmap.Mapping, data []byte, opts ...Option) (Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkHeader(data); err != nil {
		return Container{}, err
	}

	c := Container{log: o.logger}
	a, err := arena.FromMapping(m, data, o.allocator, arenaOptions(&o)...)
	if err != nil {
		return Container{}, err
	}
	c.a = a
	return c, nil
}

func checkHeader(data []byte) error {
	if len(data) < headerSize {
		return corruptf("blob of %d bytes is shorter than its header", len(data))
	}
	magic := binary.NativeEndian.Uint32(data)
	if magic != headerMagic {
		return corruptf("bad blob magic %#x", magic)
	}
	return nil
}

func arenaOptions(o *options) []arena.Option {
	log := o.logger
	opts := []arena.Option{
		arena.WithGrowHook(func(oldCap, newCap, used int) {
			log.LogGrow(context.Background(), oldCap, newCap, used)
		}),
	}
	if o.rc != nil {
		opts = append(opts, arena.WithMemoryAcquirer(o.rc))
	}
	return opts
}

// IsValid reports whether the Container has a live arena.
func (c Container) IsValid() bool {
	return c.a.IsValid()
}

func (c Container) check() error {
	if !c.a.IsValid() {
		return fmt.Errorf("%w: container is not initialized or was disposed", ErrInvalidOperation)
	}
	return nil
}

func (c Container) mustBeValid() {
	if !c.a.IsValid() {
		panic(fmt.Errorf("%w: dereferencing a handle through an invalid container", ErrInvalidOperation))
	}
}

// alloc reserves size zeroed bytes.
func (c Container) alloc(kind string, size int) (uint32, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	off, err := c.a.AllocBytes(size)
	if err != nil {
		c.log.LogAllocFailed(context.Background(), kind, size, err)
		return 0, err
	}
	return off, nil
}

// Reserve grows the arena to at least capacity bytes ahead of a bulk
// allocation phase. It never changes the capacity of an allocated map, set
// or multimap.
func (c Container) Reserve(capacity int) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.a.Reserve(capacity)
}

// Dispose frees the arena. Every handle issued by the Container becomes
// invalid. Dispose is idempotent.
func (c Container) Dispose() {
	if !c.a.IsValid() {
		return
	}
	capacity, used := c.a.Cap(), c.a.Len()
	c.a.Free()
	c.log.LogDispose(context.Background(), capacity, used)
}

// Len returns the number of bytes in use.
func (c Container) Len() int {
	return c.a.Len()
}

// Cap returns the arena capacity in bytes.
func (c Container) Cap() int {
	return c.a.Cap()
}

// Stats returns arena statistics.
func (c Container) Stats() Stats {
	if c.a == nil {
		return Stats{}
	}
	return c.a.Stats()
}

// Bytes returns the used prefix of the arena. The slice aliases the arena:
// it must not be modified and is invalidated by the next growth.
func (c Container) Bytes() []byte {
	return c.a.Data()
}

// SetRoot records p as the Container's root handle. It is persisted with the
// blob so a loader can find the top-level structure.
func (c Container) SetRoot(p RawPtr) error {
	if err := c.check(); err != nil {
		return err
	}
	arena.Ref[blobHeader](c.a, 0).Root = p
	return nil
}

// Root returns the handle recorded by SetRoot, or a nil handle.
func (c Container) Root() RawPtr {
	if !c.a.IsValid() {
		return 0
	}
	return arena.Load[blobHeader](c.a, 0).Root
}

func (c Container) String() string {
	if !c.a.IsValid() {
		return "Container{invalid}"
	}
	return fmt.Sprintf("Container{%s}", c.a)
}
