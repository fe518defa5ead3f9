// Package daemon runs reconciliation in the background.
//
// The daemon:
// 1. Reconciles once on start
// 2. Reconciles again every Interval
// 3. Reconciles after Kick, once Debounce has passed without another kick
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	hmbsync "github.com/helpmebuyapp/helpmebuy/internal/sync"
)

// Reconciler is the part of the sync coordinator the daemon drives.
type Reconciler interface {
	Reconcile(ctx context.Context) hmbsync.Report
}

// Config holds configuration for the daemon.
type Config struct {
	// Interval is how often to reconcile. Zero disables periodic runs.
	Interval time.Duration

	// Debounce is how long to wait after the last Kick before reconciling.
	// This batches bursts of local edits into one run.
	Debounce time.Duration

	// OnReport, if set, receives the report of every run.
	OnReport func(hmbsync.Report)

	// Logger for daemon activity
	Logger zerolog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 5 * time.Minute,
		Debounce: 2 * time.Second,
		Logger:   zerolog.Nop(),
	}
}

// Daemon schedules reconcile runs.
type Daemon struct {
	r      Reconciler
	config *Config
	logger zerolog.Logger

	kick chan struct{}

	runMu sync.Mutex
	runs  atomic.Int64

	mu      sync.Mutex
	running bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// ErrAlreadyRunning is returned by Start on a daemon that is running.
var ErrAlreadyRunning = errors.New("daemon already running")

// New creates a Daemon with the default configuration.
func New(r Reconciler) (*Daemon, error) {
	return NewWithConfig(r, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(r Reconciler, config *Config) (*Daemon, error) {
	if r == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval < 0 || config.Debounce < 0 {
		return nil, fmt.Errorf("interval and debounce must not be negative")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		r:      r,
		config: config,
		logger: config.Logger.With().Str("component", "daemon").Logger(),
		kick:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start reconciles once and then keeps scheduling runs.
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info().
		Dur("interval", d.config.Interval).
		Dur("debounce", d.config.Debounce).
		Msg("starting daemon")

	d.wg.Add(1)
	go d.loop()

	select {
	case <-ctx.Done():
		d.logger.Info().Msg("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. An in-flight run is cancelled.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.logger.Info().Msg("stopping daemon")
		d.cancel()
		d.wg.Wait()
		d.logger.Info().Int64("runs", d.runs.Load()).Msg("daemon stopped")
	})
	return nil
}

// Kick asks for a run once the debounce window has passed. It never blocks.
func (d *Daemon) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Runs returns how many reconcile runs have completed.
func (d *Daemon) Runs() int64 {
	return d.runs.Load()
}

// RunOnce reconciles immediately. Concurrent calls are serialized.
func (d *Daemon) RunOnce() hmbsync.Report {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	report := d.r.Reconcile(d.ctx)
	d.runs.Add(1)

	if d.config.OnReport != nil {
		d.config.OnReport(report)
	}
	return report
}

// loop runs the initial reconcile and then waits for ticks and debounced kicks.
func (d *Daemon) loop() {
	defer d.wg.Done()

	d.RunOnce()

	var tick <-chan time.Time
	if d.config.Interval > 0 {
		ticker := time.NewTicker(d.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// A nil channel never fires; the timer is armed by the first kick.
	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-tick:
			d.logger.Debug().Msg("periodic reconcile")
			d.RunOnce()

		case <-d.kick:
			if debounce == nil {
				debounce = time.NewTimer(d.config.Debounce)
			} else {
				debounce.Reset(d.config.Debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			d.logger.Debug().Msg("debounced reconcile")
			d.RunOnce()
		}
	}
}
