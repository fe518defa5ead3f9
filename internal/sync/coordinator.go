package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
	"github.com/helpmebuyapp/helpmebuy/internal/repository"
	"github.com/helpmebuyapp/helpmebuy/internal/task"
)

// Coordinator composes a local store and a remote mirror into one
// offline-first repository.
type Coordinator struct {
	local    repository.Repository
	remote   repository.Repository
	launcher task.Launcher
	logger   zerolog.Logger

	// reconcileMu keeps two pull phases from inserting the same remote id.
	reconcileMu stdsync.Mutex
}

var _ repository.Repository = (*Coordinator)(nil)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLauncher sets the launcher used for remote propagation.
func WithLauncher(l task.Launcher) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.launcher = l
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger.With().Str("component", "sync").Logger()
	}
}

// New creates a Coordinator. Without WithLauncher, remote propagation runs
// on a task.Detached launcher with default settings.
//
// Example:
//
//	coord := sync.New(local, mirror, sync.WithLauncher(launcher))
func New(local, remote repository.Repository, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:  local,
		remote: remote,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.launcher == nil {
		c.launcher = task.NewDetached(task.WithLogger(c.logger))
	}
	return c
}

// Insert stores e locally and schedules the same insert on the remote
// mirror under the id the local store assigned. Only local failures are
// returned.
func (c *Coordinator) Insert(ctx context.Context, e model.Entity) (int, error) {
	id, err := c.local.Insert(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("failed to insert list: %w", err)
	}

	stored := detach(e, id)
	c.propagate("insert", id, func(ctx context.Context) error {
		_, err := c.remote.Insert(ctx, stored)
		return err
	})
	return id, nil
}

// Update replaces the list locally and schedules the remote update.
func (c *Coordinator) Update(ctx context.Context, e model.Entity) error {
	if err := c.local.Update(ctx, e); err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}

	stored := detach(e, e.EntityID())
	c.propagate("update", stored.ID, func(ctx context.Context) error {
		return c.remote.Update(ctx, stored)
	})
	return nil
}

// Delete removes the list locally and schedules the remote delete.
func (c *Coordinator) Delete(ctx context.Context, e model.Entity) error {
	if err := c.local.Delete(ctx, e); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}

	stored := detach(e, e.EntityID())
	c.propagate("delete", stored.ID, func(ctx context.Context) error {
		return c.remote.Delete(ctx, stored)
	})
	return nil
}

// GetByID returns the local live feed for one list.
func (c *Coordinator) GetByID(ctx context.Context, id int) (<-chan model.Entity, error) {
	return c.local.GetByID(ctx, id)
}

// GetAll returns the local live feed of every list.
func (c *Coordinator) GetAll(ctx context.Context) (<-chan []model.Entity, error) {
	return c.local.GetAll(ctx)
}

// AutoSuggestions delegates to the local store.
func (c *Coordinator) AutoSuggestions(query string) []string {
	return c.local.AutoSuggestions(query)
}

func (c *Coordinator) propagate(op string, id int, fn task.Func) {
	c.launcher.Launch(fmt.Sprintf("remote %s %d", op, id), fn)
}

// SyncOne upserts e to the remote mirror and waits for the outcome. A
// failure is logged, not returned; the result reports success.
func (c *Coordinator) SyncOne(ctx context.Context, e model.Entity) bool {
	if model.IsNil(e) {
		c.logger.Warn().Msg("sync one: nil list")
		return false
	}
	if err := c.remote.Update(ctx, e); err != nil {
		c.logger.Warn().Err(err).Int("id", e.EntityID()).Msg("sync one failed")
		return false
	}
	return true
}

// Reconcile runs the push phase and then the pull phase. It never fails;
// the Report says what happened. Concurrent calls run one at a time.
func (c *Coordinator) Reconcile(ctx context.Context) Report {
	c.reconcileMu.Lock()
	defer c.reconcileMu.Unlock()

	start := time.Now()
	var r Report

	c.push(ctx, &r)
	c.pull(ctx, &r)

	r.Duration = time.Since(start)

	ev := c.logger.Info()
	if !r.OK() {
		ev = c.logger.Warn()
	}
	ev.Int("pushed", r.Pushed).
		Int("push_failed", r.PushFailed).
		Int("updated", r.Updated).
		Int("inserted", r.Inserted).
		Int("pull_failed", r.PullFailed).
		AnErr("push_err", r.PushErr).
		AnErr("pull_err", r.PullErr).
		Dur("elapsed", r.Duration).
		Msg("reconcile finished")

	return r
}

// push writes every local list to the remote mirror.
func (c *Coordinator) push(ctx context.Context, r *Report) {
	locals, err := repository.Snapshot(ctx, c.local)
	if err != nil {
		r.PushErr = fmt.Errorf("failed to read local lists: %w", err)
		return
	}

	for _, e := range locals {
		if err := ctx.Err(); err != nil {
			r.PushErr = fmt.Errorf("push interrupted: %w", err)
			return
		}
		if err := c.remote.Update(ctx, e); err != nil {
			r.PushFailed++
			c.logger.Warn().Err(err).Int("id", e.EntityID()).Msg("push failed")
			continue
		}
		r.Pushed++
	}
}

// pull writes every remote list to the local store. Known ids are updated,
// unknown ids are inserted under the remote id. Rows without an id cannot
// be matched to a local list and are skipped as failures.
func (c *Coordinator) pull(ctx context.Context, r *Report) {
	remotes, err := repository.Snapshot(ctx, c.remote)
	if err != nil {
		r.PullErr = fmt.Errorf("failed to read remote lists: %w", err)
		return
	}

	locals, err := repository.Snapshot(ctx, c.local)
	if err != nil {
		r.PullErr = fmt.Errorf("failed to read local lists: %w", err)
		return
	}
	known := repository.Index(locals)

	for _, e := range remotes {
		if err := ctx.Err(); err != nil {
			r.PullErr = fmt.Errorf("pull interrupted: %w", err)
			return
		}

		if e.EntityID() <= 0 {
			r.PullFailed++
			c.logger.Warn().Int("id", e.EntityID()).Str("name", e.EntityName()).Msg("skipping remote list without an id")
			continue
		}

		if _, ok := known[e.EntityID()]; ok {
			if err := c.local.Update(ctx, e); err != nil {
				r.PullFailed++
				c.logger.Warn().Err(err).Int("id", e.EntityID()).Msg("pull update failed")
				continue
			}
			r.Updated++
			continue
		}

		id, err := c.local.Insert(ctx, e)
		if err != nil {
			r.PullFailed++
			c.logger.Warn().Err(err).Int("id", e.EntityID()).Msg("pull insert failed")
			continue
		}
		if id != e.EntityID() {
			// The id was taken between the snapshot and the insert.
			if err := c.adopt(ctx, e, id); err != nil {
				r.PullFailed++
				c.logger.Warn().Err(err).Int("remote_id", e.EntityID()).Int("local_id", id).Msg("pull insert landed on a new id")
				continue
			}
			r.Updated++
			continue
		}
		r.Inserted++
	}
}

// adopt moves a pulled list that was stored under stray back onto its
// remote id, overwriting whatever holds that id now.
func (c *Coordinator) adopt(ctx context.Context, e model.Entity, stray int) error {
	if err := c.local.Delete(ctx, detach(e, stray)); err != nil {
		return fmt.Errorf("failed to remove list %d: %w", stray, err)
	}
	if err := c.local.Update(ctx, e); err != nil {
		return fmt.Errorf("failed to update list %d: %w", e.EntityID(), err)
	}
	return nil
}
