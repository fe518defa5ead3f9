package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/helpmebuyapp/helpmebuy/internal/loadtest"
	"github.com/helpmebuyapp/helpmebuy/internal/localstore"
	"github.com/helpmebuyapp/helpmebuy/internal/memstore"
	hmbsync "github.com/helpmebuyapp/helpmebuy/internal/sync"
	"github.com/helpmebuyapp/helpmebuy/internal/task"
	"github.com/helpmebuyapp/helpmebuy/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "setup",
	Short:   "Measure local store latency under concurrent use",
	Long: `Run a load test against a scratch database in a temporary directory.

The database is seeded with generated lists, then concurrent readers and
writers go through the same write path as the other commands, with an
in-memory mirror in place of DynamoDB. Your own lists are not touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lists, _ := cmd.Flags().GetInt("lists")
		readers, _ := cmd.Flags().GetInt("readers")
		reads, _ := cmd.Flags().GetInt("reads")
		writers, _ := cmd.Flags().GetInt("writers")
		writes, _ := cmd.Flags().GetInt("writes")
		if lists <= 0 || readers <= 0 || reads <= 0 || writers < 0 || writes < 0 {
			return fmt.Errorf("--lists, --readers and --reads must be positive")
		}

		dir, err := os.MkdirTemp("", "hmb-bench-*")
		if err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
		defer os.RemoveAll(dir)

		ctx := cmd.Context()
		store, err := localstore.Open(filepath.Join(dir, "bench.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitSchema(ctx); err != nil {
			return err
		}

		tasks := task.NewDetached()
		coord := hmbsync.New(store, memstore.New(memstore.WithUpsert()), hmbsync.WithLauncher(tasks))

		fmt.Printf("%s Seeding %s...\n", ui.RenderAccent("⏱"), ui.Count(lists, "list"))
		start := time.Now()
		ids, err := loadtest.Seed(ctx, coord, lists)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded in %v\n\n", time.Since(start).Round(time.Millisecond))

		readStats, err := loadtest.RunReaders(ctx, coord, ids, readers, reads)
		if err != nil {
			return err
		}
		readStats.Fprint(os.Stdout, fmt.Sprintf("Reads (%d readers)", readers))

		if writers > 0 && writes > 0 {
			fmt.Println()
			writeStats, err := loadtest.RunWriters(ctx, coord, writers, writes)
			if err != nil {
				return err
			}
			writeStats.Fprint(os.Stdout, fmt.Sprintf("Writes (%d writers, insert then update)", writers))
		}

		drain, cancel := context.WithTimeout(ctx, task.DefaultDeadline)
		defer cancel()
		if err := tasks.Wait(drain); err != nil {
			return err
		}
		stats := tasks.Stats()
		fmt.Printf("\nBackground propagation: %d launched, %d failed, %d dropped\n", stats.Launched, stats.Failed, stats.Dropped)
		return nil
	},
}

func init() {
	benchCmd.Flags().Int("lists", 500, "lists to seed")
	benchCmd.Flags().Int("readers", 20, "concurrent readers")
	benchCmd.Flags().Int("reads", 20, "reads per reader")
	benchCmd.Flags().Int("writers", 4, "concurrent writers")
	benchCmd.Flags().Int("writes", 10, "writes per writer")

	rootCmd.AddCommand(benchCmd)
}
