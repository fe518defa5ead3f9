package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helpmebuyapp/helpmebuy/internal/daemon"
	"github.com/helpmebuyapp/helpmebuy/internal/dashboard"
	hmbsync "github.com/helpmebuyapp/helpmebuy/internal/sync"
	"github.com/helpmebuyapp/helpmebuy/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Reconcile local lists with the mirror",
	Long: `Reconcile the local database with the DynamoDB mirror:

  1. Push: every local list is written to the mirror
  2. Pull: every mirror list is written back locally; lists unknown
     locally are added

The mirror wins when both sides changed the same list. Lists deleted on
one side are not deleted on the other.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), mirrorName(a))
		report := a.coord.Reconcile(ctx)
		return printReport(report)
	}),
}

var pushCmd = &cobra.Command{
	Use:     "push <id>",
	GroupID: "sync",
	Short:   "Copy one list to the mirror now",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		list, err := a.local.ListByID(ctx, id)
		if err != nil {
			return err
		}
		if !a.coord.SyncOne(ctx, list) {
			return fmt.Errorf("list %d was not copied to %s", id, mirrorName(a))
		}
		fmt.Printf("%s Pushed list %d to %s\n", ui.RenderPass("✓"), id, mirrorName(a))
		return nil
	}),
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "sync",
	Short:   "Serve live lists over WebSocket and sync in the background",
	Long: `Start the dashboard server and the background sync daemon.

Connected clients receive every change to the lists and can send insert,
update, delete and sync intents. The daemon reconciles on start, every
sync.interval, and shortly after each write made through the dashboard.
Lists changed by another hmb process show up in the live feed right away;
that process pushes its own writes to the mirror.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		cfg := a.cfg
		if cmd.Flags().Changed("port") {
			cfg.Dashboard.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("host") {
			cfg.Dashboard.Host, _ = cmd.Flags().GetString("host")
		}

		server := dashboard.NewServer(&dashboard.Config{
			Host:   cfg.Dashboard.Host,
			Port:   cfg.Dashboard.Port,
			Logger: a.log.Logger,
		})

		var handler *dashboard.Handler
		d, err := daemon.NewWithConfig(a.coord, &daemon.Config{
			Interval: cfg.Sync.Interval,
			Debounce: cfg.Sync.Debounce,
			Logger:   a.log.Logger,
			OnReport: func(r hmbsync.Report) {
				a.log.Info().Str("report", r.String()).Bool("ok", r.OK()).Msg("reconciled")
				handler.BroadcastReport(r)
			},
		})
		if err != nil {
			return err
		}
		handler = dashboard.NewHandler(server, a.coord,
			dashboard.WithWriteHook(d.Kick),
			dashboard.WithHandlerLogger(a.log.Logger),
		)

		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(); err != nil {
				a.log.Warn().Err(err).Msg("dashboard did not stop cleanly")
			}
		}()

		go func() {
			if err := handler.Run(ctx); err != nil {
				a.log.Error().Err(err).Msg("live feed stopped")
			}
		}()
		go func() {
			if err := a.local.WatchExternal(ctx); err != nil {
				a.log.Warn().Err(err).Msg("live feeds will not show changes made by other processes")
			}
		}()

		addr := server.GetAddr()
		fmt.Printf("Dashboard server started on http://%s\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Printf("Mirror: %s, sync every %s\n", mirrorName(a), cfg.Sync.Interval)
		fmt.Println("\nPress Ctrl+C to stop...")

		err = d.Start(ctx)
		fmt.Printf("\nShutting down after %s...\n", ui.Count(int(d.Runs()), "sync run"))
		return err
	}),
}

func mirrorName(a *app) string {
	if a.dynamo == nil {
		return "the offline mirror"
	}
	return "DynamoDB table " + a.dynamo.Table()
}

func printReport(r hmbsync.Report) error {
	switch {
	case r.OK():
		fmt.Printf("%s Sync complete: %s\n", ui.RenderPass("✓"), r)
		return nil
	case r.Offline():
		fmt.Printf("%s Mirror unreachable, local lists are unchanged: %s\n", ui.RenderWarn("⚠"), r)
		return errors.New("sync incomplete: mirror unreachable")
	default:
		fmt.Printf("%s Sync finished with errors: %s\n", ui.RenderWarn("⚠"), r)
		return errors.New("sync incomplete")
	}
}

func init() {
	serveCmd.Flags().Int("port", 8080, "dashboard port (0 picks a free port)")
	serveCmd.Flags().String("host", "127.0.0.1", "dashboard bind address")

	rootCmd.AddCommand(syncCmd, pushCmd, serveCmd)
}
