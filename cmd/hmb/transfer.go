package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helpmebuyapp/helpmebuy/internal/config"
	"github.com/helpmebuyapp/helpmebuy/internal/repository"
	"github.com/helpmebuyapp/helpmebuy/internal/transfer"
	"github.com/helpmebuyapp/helpmebuy/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: "lists",
	Short:   "Write all lists to a JSON or YAML file",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		format, err := formatFor(cmd, args[0])
		if err != nil {
			return err
		}

		lists, err := repository.Snapshot(ctx, a.local)
		if err != nil {
			return err
		}
		if err := transfer.ExportFile(args[0], lists, format); err != nil {
			return err
		}
		fmt.Printf("%s Exported %s to %s\n", ui.RenderPass("✓"), ui.Count(len(lists), "list"), args[0])
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "lists",
	Short:   "Add lists from a JSON or YAML file",
	Long: `Add every list in the file as a new list. Ids in the file are kept
when they are free locally; otherwise the list gets a fresh id.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		format, err := formatFor(cmd, args[0])
		if err != nil {
			return err
		}

		lists, err := transfer.ImportFile(args[0], format)
		if err != nil {
			return err
		}
		for _, l := range lists {
			if _, err := a.coord.Insert(ctx, l); err != nil {
				return fmt.Errorf("failed to import %q: %w", l.Name, err)
			}
		}
		fmt.Printf("%s Imported %s from %s\n", ui.RenderPass("✓"), ui.Count(len(lists), "list"), args[0])
		return nil
	}),
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	GroupID: "setup",
	Short:   "Manage the DynamoDB mirror",
}

var remoteInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the mirror table if it does not exist",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if a.dynamo == nil {
			return errors.New("remote init needs DynamoDB; drop --offline")
		}
		created, err := a.dynamo.EnsureTable(ctx)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("%s Created table %s\n", ui.RenderPass("✓"), a.dynamo.Table())
		} else {
			fmt.Printf("Table %s already exists\n", a.dynamo.Table())
		}
		return nil
	}),
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}

		if err := config.WriteDefault(path, force); err != nil {
			if errors.Is(err, config.ErrExists) {
				return fmt.Errorf("%w (use --force to overwrite)", err)
			}
			return err
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

func formatFor(cmd *cobra.Command, path string) (transfer.Format, error) {
	if s, _ := cmd.Flags().GetString("format"); s != "" {
		return transfer.ParseFormat(s)
	}
	return transfer.FormatFromPath(path), nil
}

func init() {
	exportCmd.Flags().String("format", "", "json or yaml (default from the file extension)")
	importCmd.Flags().String("format", "", "json or yaml (default from the file extension)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	remoteCmd.AddCommand(remoteInitCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(exportCmd, importCmd, remoteCmd, configCmd)
}
