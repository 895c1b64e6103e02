package resource

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds throttling limits. Zero values mean unlimited, except
// MaxWorkers which defaults to GOMAXPROCS.
type Config struct {
	// MaxWorkers bounds concurrent index rebuilds.
	MaxWorkers int64 `yaml:"max_workers" validate:"gte=0"`

	// ObjectsPerSecond bounds the reindex rate.
	ObjectsPerSecond float64 `yaml:"objects_per_second" validate:"gte=0"`

	// IOLimitBytesPerSec bounds snapshot IO.
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec" validate:"gte=0"`
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	workers *semaphore.Weighted
	active  atomic.Int64

	objects *rate.Limiter // nil if unlimited
	io      *rate.Limiter // nil if unlimited

	reindexed atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}
	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
	if cfg.ObjectsPerSecond > 0 {
		c.objects = rate.NewLimiter(rate.Limit(cfg.ObjectsPerSecond), max(1, int(cfg.ObjectsPerSecond)))
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireWorker reserves a worker slot, blocking until one is free or ctx
// is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.workers.Acquire(ctx, 1); err != nil {
		return err
	}
	c.active.Add(1)
	return nil
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	if !c.workers.TryAcquire(1) {
		return false
	}
	c.active.Add(1)
	return true
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.active.Add(-1)
	c.workers.Release(1)
}

// ActiveWorkers returns the number of reserved worker slots.
func (c *Controller) ActiveWorkers() int64 {
	if c == nil {
		return 0
	}
	return c.active.Load()
}

// WaitObjects waits until n more objects may be reindexed.
func (c *Controller) WaitObjects(ctx context.Context, n int) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.objects != nil {
		for n > 0 {
			step := min(n, c.objects.Burst())
			if err := c.objects.WaitN(ctx, step); err != nil {
				return err
			}
			n -= step
			c.reindexed.Add(int64(step))
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.reindexed.Add(int64(n))
	return nil
}

// Reindexed returns the number of objects admitted by WaitObjects.
func (c *Controller) Reindexed() int64 {
	if c == nil {
		return 0
	}
	return c.reindexed.Load()
}

// AcquireIO waits until the IO limit allows n bytes.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil || n <= 0 {
		return nil
	}
	for n > 0 {
		step := min(n, c.io.Burst())
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
