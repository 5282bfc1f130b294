package catalog

import (
	"github.com/hupe1980/blobarena"
	"github.com/hupe1980/blobarena/resource"
	"github.com/hupe1980/blobarena/snapshot"
)

type options struct {
	codec     snapshot.Codec
	allocator blobarena.Allocator
	logger    *blobarena.Logger
	rc        *resource.Controller
}

// Option configures a Catalog.
type Option func(*options)

// WithCompression sets the snapshot codec used by Publish.
func WithCompression(c snapshot.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithAllocator selects the arena backing of loaded Containers.
func WithAllocator(a blobarena.Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithLogger sets the logger for catalog operations.
func WithLogger(l *blobarena.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = blobarena.NoopLogger()
		}
		o.logger = l
	}
}

// WithResourceController charges loaded Containers against the memory
// budget, rate limits snapshot IO and bounds LoadAll parallelism.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// snapshotOptions tags snapshot and container logs with the dataset name.
func (o options) snapshotOptions(name string) []snapshot.Option {
	return []snapshot.Option{
		snapshot.WithCompression(o.codec),
		snapshot.WithAllocator(o.allocator),
		snapshot.WithLogger(o.logger.WithName(name)),
		snapshot.WithResourceController(o.rc),
	}
}
