package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values mean "no limit", except
// MaxBackgroundWorkers, which defaults to 1.
type Config struct {
	// MemoryLimitBytes caps the bytes all arenas sharing the controller may
	// reserve.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers caps concurrent snapshot loads.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec caps snapshot read and write throughput.
	IOLimitBytesPerSec int64
}

// Controller shares memory, worker and IO budgets between containers,
// snapshots and catalogs. It is safe for concurrent use. A nil *Controller
// imposes no limits.
type Controller struct {
	cfg     Config
	memUsed atomic.Int64
	workers *semaphore.Weighted
	io      *rate.Limiter // nil if unlimited
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}
	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// TryAcquireMemory reserves bytes without blocking and reports whether the
// reservation fit. Arenas call it before every capacity increase.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	limit := c.cfg.MemoryLimitBytes
	for {
		used := c.memUsed.Load()
		if limit > 0 && used+bytes > limit {
			return false
		}
		if c.memUsed.CompareAndSwap(used, used+bytes) {
			return true
		}
	}
}

// ReleaseMemory returns bytes reserved with TryAcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the budget, 0 if unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

func (c *Controller) MaxBackgroundWorkers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxBackgroundWorkers)
}

// AcquireBackground blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseBackground frees a slot taken with AcquireBackground.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the IO budget admits bytes. Requests above the
// limiter's burst are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.io.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
