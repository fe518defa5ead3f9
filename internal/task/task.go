// Package task runs fire-and-forget work.
//
// A Launcher accepts named tasks whose outcome the caller never observes.
// Detached runs each task on its own goroutine under a fresh deadline that
// is independent of the launching request, with a cap on how many run at
// once. Inline runs tasks on the caller's goroutine and is meant for tests.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Defaults for Detached.
const (
	DefaultDeadline    = 15 * time.Second
	DefaultMaxInFlight = 16
)

// Func is the body of a task. The context carries the task deadline.
type Func func(ctx context.Context) error

// Launcher starts tasks without reporting their results.
type Launcher interface {
	Launch(name string, fn Func)
}

// Stats counts task outcomes.
type Stats struct {
	Launched  int64
	Succeeded int64
	Failed    int64
	Dropped   int64
}

// Detached runs each task in the background.
//
// A task that cannot get a slot before its deadline is dropped and
// logged. Failures and panics are logged and counted, never returned.
type Detached struct {
	deadline time.Duration
	sem      *semaphore.Weighted
	logger   zerolog.Logger
	wg       sync.WaitGroup

	launched  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Detached launcher.
type Option func(*detachedConfig)

type detachedConfig struct {
	deadline    time.Duration
	maxInFlight int64
	logger      zerolog.Logger
}

// WithDeadline sets the per-task deadline.
func WithDeadline(d time.Duration) Option {
	return func(c *detachedConfig) {
		if d > 0 {
			c.deadline = d
		}
	}
}

// WithMaxInFlight caps the number of tasks running at once.
func WithMaxInFlight(n int) Option {
	return func(c *detachedConfig) {
		if n > 0 {
			c.maxInFlight = int64(n)
		}
	}
}

// WithLogger sets the logger for task outcomes.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *detachedConfig) {
		c.logger = logger
	}
}

// NewDetached creates a background launcher.
func NewDetached(opts ...Option) *Detached {
	cfg := detachedConfig{
		deadline:    DefaultDeadline,
		maxInFlight: DefaultMaxInFlight,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Detached{
		deadline: cfg.deadline,
		sem:      semaphore.NewWeighted(cfg.maxInFlight),
		logger:   cfg.logger.With().Str("component", "task").Logger(),
	}
}

// Launch starts fn in the background and returns immediately.
func (d *Detached) Launch(name string, fn Func) {
	d.launched.Add(1)
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.deadline)
		defer cancel()

		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.dropped.Add(1)
			d.logger.Warn().Str("task", name).Err(err).Msg("task dropped before start")
			return
		}
		defer d.sem.Release(1)

		start := time.Now()
		if err := run(ctx, fn); err != nil {
			d.failed.Add(1)
			d.logger.Warn().
				Str("task", name).
				Dur("elapsed", time.Since(start)).
				Err(err).
				Msg("background task failed")
			return
		}

		d.succeeded.Add(1)
		d.logger.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task done")
	}()
}

// Wait blocks until every launched task has finished or ctx is done.
func (d *Detached) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain background tasks: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the outcome counters.
func (d *Detached) Stats() Stats {
	return Stats{
		Launched:  d.launched.Load(),
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Inline runs each task synchronously on the caller's goroutine.
// The zero value is ready to use.
type Inline struct {
	Logger zerolog.Logger

	mu       sync.Mutex
	failures []error
	names    []string
}

// Launch runs fn and records any failure.
func (in *Inline) Launch(name string, fn Func) {
	err := run(context.Background(), fn)

	in.mu.Lock()
	in.names = append(in.names, name)
	if err != nil {
		in.failures = append(in.failures, fmt.Errorf("%s: %w", name, err))
	}
	in.mu.Unlock()

	if err != nil {
		in.Logger.Warn().Str("task", name).Err(err).Msg("background task failed")
	}
}

// Failures returns the errors of failed tasks in launch order.
func (in *Inline) Failures() []error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]error(nil), in.failures...)
}

// Names returns the names of every launched task in order.
func (in *Inline) Names() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.names...)
}

// run calls fn and turns a panic into an error.
func run(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
