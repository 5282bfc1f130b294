package blobarena

import (
	"github.com/hupe1980/blobarena/internal/arena"
	"github.com/hupe1980/blobarena/resource"
)

// Allocator selects the memory that backs a Container's arena.
type Allocator = arena.Allocator

const (
	// HeapAllocator backs the arena with a pointer-free Go slice.
	HeapAllocator = arena.Heap
	// MmapAllocator backs the arena with anonymous off-heap memory.
	MmapAllocator = arena.Mmap
)

type options struct {
	allocator Allocator
	logger    *Logger
	rc        *resource.Controller
}

// Option configures Container construction.
type Option func(*options)

func defaultOptions() options {
	return options{
		allocator: arena.DefaultAllocator,
		logger:    NoopLogger(),
	}
}

// WithAllocator selects the arena backing. The default is MmapAllocator.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithLogger configures structured logging.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithResourceController charges arena memory against rc's memory budget.
// Growth that would exceed the budget fails with ErrMemoryLimitExceeded.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}
