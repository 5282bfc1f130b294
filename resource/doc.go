// Package resource implements the Controller for process-wide limits.
//
// The Controller budgets three resources:
//
//   - Memory: bytes reserved by arena buffers (fail-fast, never blocks)
//   - Workers: slots for parallel snapshot loads in a catalog
//   - IO: token bucket for snapshot reads and writes
//
// # Memory
//
// Arenas charge every capacity increase with TryAcquireMemory and fail the
// allocation when it is refused, leaving the arena unchanged:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//	c, err := blobarena.New(1<<20, blobarena.WithResourceController(rc))
//
// # Workers
//
// Worker slots are a weighted semaphore from golang.org/x/sync. Catalogs
// sharing a controller share its slots.
//
// # IO
//
// RateLimitedReader and RateLimitedWriter wrap streams with a limiter from
// golang.org/x/time/rate. The snapshot package uses them when a controller is
// configured.
//
// A nil *Controller is valid and imposes no limits.
package resource
