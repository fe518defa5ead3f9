// Command hmb manages HelpMeBuy shopping lists from the terminal.
//
// Lists live in a local SQLite database and are mirrored to a DynamoDB
// table in the background. Every command works offline; `hmb sync`
// reconciles the two stores once the network is back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	offline    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hmb",
	Short: "HelpMeBuy shopping lists, offline first",
	Long: `hmb keeps your shopping lists in a local database and mirrors
them to DynamoDB in the background.

Writes always land locally first, so every command works without a
network connection. Run "hmb sync" to push local lists to the mirror and
pull remote changes back; the remote copy wins on conflicts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.helpmebuy/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use an empty in-memory mirror instead of DynamoDB")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also log to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lists", Title: "List commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "setup", Title: "Setup commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
