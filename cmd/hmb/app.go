package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helpmebuyapp/helpmebuy/internal/config"
	"github.com/helpmebuyapp/helpmebuy/internal/localstore"
	"github.com/helpmebuyapp/helpmebuy/internal/logging"
	"github.com/helpmebuyapp/helpmebuy/internal/memstore"
	"github.com/helpmebuyapp/helpmebuy/internal/remote"
	"github.com/helpmebuyapp/helpmebuy/internal/repository"
	hmbsync "github.com/helpmebuyapp/helpmebuy/internal/sync"
	"github.com/helpmebuyapp/helpmebuy/internal/task"
)

// app holds the stores and services a command runs against.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	local  *localstore.Store
	mirror repository.Repository

	// dynamo is nil in offline mode.
	dynamo *remote.Store

	tasks *task.Detached
	coord *hmbsync.Coordinator
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if offline {
		cfg.Offline = true
	}

	var console io.Writer
	if verbose {
		console = os.Stderr
	}
	lg, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Console: console})
	if err != nil {
		return nil, err
	}

	local, err := localstore.Open(cfg.DB.Path, localstore.WithLogger(lg.Logger))
	if err != nil {
		_ = lg.Close()
		return nil, err
	}
	if err := local.InitSchema(ctx); err != nil {
		_ = local.Close()
		_ = lg.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: lg, local: local}

	if cfg.Offline {
		a.mirror = memstore.New(memstore.WithUpsert())
	} else {
		dynamo, err := remote.New(ctx, cfg.Remote, remote.WithLogger(lg.Logger))
		if err != nil {
			_ = local.Close()
			_ = lg.Close()
			return nil, err
		}
		a.dynamo = dynamo
		a.mirror = dynamo
	}

	a.tasks = task.NewDetached(
		task.WithDeadline(cfg.Tasks.Deadline),
		task.WithMaxInFlight(cfg.Tasks.MaxInFlight),
		task.WithLogger(lg.Logger),
	)
	a.coord = hmbsync.New(local, a.mirror,
		hmbsync.WithLauncher(a.tasks),
		hmbsync.WithLogger(lg.Logger),
	)

	lg.Debug().
		Str("db", cfg.DB.Path).
		Bool("offline", cfg.Offline).
		Str("table", cfg.Remote.Table).
		Msg("app opened")

	return a, nil
}

// Close waits for background propagation, bounded by the task deadline,
// and then releases the stores.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Tasks.Deadline)
	defer cancel()

	if err := a.tasks.Wait(ctx); err != nil {
		a.log.Warn().Err(err).Msg("exiting with background writes still running")
	}
	stats := a.tasks.Stats()
	if stats.Failed > 0 || stats.Dropped > 0 {
		a.log.Warn().
			Int64("failed", stats.Failed).
			Int64("dropped", stats.Dropped).
			Msg("some changes did not reach the mirror; run hmb sync later")
	}

	err := a.local.Close()
	if lerr := a.log.Close(); err == nil {
		err = lerr
	}
	return err
}

// withApp opens the app for the duration of a command. The context is
// cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to open lists: %w", err)
		}

		runErr := fn(ctx, a, cmd, args)
		if err := a.Close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}
