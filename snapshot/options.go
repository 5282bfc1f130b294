package snapshot

import (
	"github.com/hupe1980/blobarena"
	"github.com/hupe1980/blobarena/resource"
)

type options struct {
	codec     Codec
	allocator blobarena.Allocator
	logger    *blobarena.Logger
	rc        *resource.Controller
}

// Option configures snapshot reads and writes.
type Option func(*options)

func applyOptions(opts []Option) options {
	o := options{
		codec:     None,
		allocator: blobarena.MmapAllocator,
		logger:    blobarena.NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCompression sets the codec used by Write. Readers detect the codec
// from the header.
func WithCompression(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithAllocator selects the arena backing of loaded Containers and of
// growth past a mapped snapshot.
func WithAllocator(a blobarena.Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithLogger sets the logger for snapshot operations and loaded Containers.
func WithLogger(l *blobarena.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = blobarena.NoopLogger()
		}
		o.logger = l
	}
}

// WithResourceController rate limits snapshot IO and charges loaded
// Containers against the controller's memory budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func (o options) containerOptions() []blobarena.Option {
	return []blobarena.Option{
		blobarena.WithAllocator(o.allocator),
		blobarena.WithLogger(o.logger),
		blobarena.WithResourceController(o.rc),
	}
}
