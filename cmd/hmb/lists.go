package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/helpmebuyapp/helpmebuy/internal/localstore"
	"github.com/helpmebuyapp/helpmebuy/internal/model"
	"github.com/helpmebuyapp/helpmebuy/internal/ui"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	GroupID: "lists",
	Short:   "Show all lists",
	Args:    cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		lists, err := a.local.Lists(ctx)
		if err != nil {
			return err
		}
		if category != "" {
			lists = filterCategory(lists, category)
		}

		if len(lists) == 0 {
			fmt.Println(ui.RenderMuted("No lists yet. Add one with: hmb add <name>"))
			return nil
		}
		fmt.Print(listTable(lists))
		return nil
	}),
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "lists",
	Short:   "Show one list with its items",
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

		fmt.Printf("%s %s\n", ui.RenderAccent(fmt.Sprintf("#%d", list.ID)), list.Name)
		fmt.Printf("Category: %s\n", list.Category)
		if !list.UpdatedAt.IsZero() {
			fmt.Printf("Updated:  %s\n", list.UpdatedAt.Local().Format(time.DateTime))
		}
		if len(list.Items) == 0 {
			fmt.Println(ui.RenderMuted("No items"))
			return nil
		}
		fmt.Println()
		for _, it := range list.Items {
			fmt.Printf("  %3d x %s\n", it.Quantity, it.Name)
		}
		return nil
	}),
}

var addCmd = &cobra.Command{
	Use:     "add [name]",
	GroupID: "lists",
	Short:   "Create a list",
	Long: `Create a list. The list is stored locally right away and copied to the
mirror in the background.

Items are given as name=quantity; a bare name means a quantity of 1:

  hmb add "Weekly shop" --category Groceries --item Milk=2 --item Bread

Without a name, hmb asks for one when run in a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		rawItems, _ := cmd.Flags().GetStringArray("item")

		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		if strings.TrimSpace(name) == "" {
			if !ui.IsTerminal(os.Stdin) {
				return errors.New("a list name is required")
			}
			if err := promptList(&name, &category); err != nil {
				return err
			}
		}

		items, err := parseItems(rawItems)
		if err != nil {
			return err
		}

		id, err := a.coord.Insert(ctx, &localstore.GroceryList{
			Name:     name,
			Category: model.CategoryOrDefault(category),
			Items:    items,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Added list %d: %s\n", ui.RenderPass("✓"), id, name)
		return nil
	}),
}

var renameCmd = &cobra.Command{
	Use:     "rename <id> <name>",
	GroupID: "lists",
	Short:   "Rename a list",
	Args:    cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		return editList(ctx, a, args[0], func(l *localstore.GroceryList) { l.Name = args[1] })
	}),
}

var setCategoryCmd = &cobra.Command{
	Use:     "set-category <id> <category>",
	GroupID: "lists",
	Short:   "Move a list to another category",
	Args:    cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		return editList(ctx, a, args[0], func(l *localstore.GroceryList) {
			l.Category = model.CategoryOrDefault(args[1])
		})
	}),
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	GroupID: "lists",
	Short:   "Delete a list",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.coord.Delete(ctx, model.List{ID: id}); err != nil {
			return err
		}
		fmt.Printf("%s Deleted list %d\n", ui.RenderPass("✓"), id)
		return nil
	}),
}

var suggestCmd = &cobra.Command{
	Use:     "suggest <query>",
	GroupID: "lists",
	Short:   "Suggest item names",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		for _, s := range a.coord.AutoSuggestions(args[0]) {
			fmt.Println(s)
		}
		return nil
	}),
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "lists",
	Short:   "Print the lists every time they change",
	Long: `Print the lists now and again after every change, including changes
made by other hmb processes on the same database. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		go func() {
			if err := a.local.WatchExternal(ctx); err != nil {
				a.log.Warn().Err(err).Msg("external changes will not be shown")
			}
		}()

		feed, err := a.coord.GetAll(ctx)
		if err != nil {
			return err
		}
		for entities := range feed {
			fmt.Printf("%s %s\n", ui.RenderMuted(time.Now().Format(time.TimeOnly)), ui.Count(len(entities), "list"))
			lists := make([]*localstore.GroceryList, 0, len(entities))
			for _, e := range entities {
				if g, ok := e.(*localstore.GroceryList); ok {
					lists = append(lists, g)
				}
			}
			if len(lists) > 0 {
				fmt.Print(listTable(lists))
			}
			fmt.Println()
		}
		return nil
	}),
}

// editList loads a list, applies change and writes it back whole, so items
// are carried over unchanged.
func editList(ctx context.Context, a *app, rawID string, change func(*localstore.GroceryList)) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	list, err := a.local.ListByID(ctx, id)
	if err != nil {
		return err
	}
	change(list)
	if err := a.coord.Update(ctx, list); err != nil {
		return err
	}
	fmt.Printf("%s Updated list %d: %s (%s)\n", ui.RenderPass("✓"), list.ID, list.Name, list.Category)
	return nil
}

func promptList(name, category *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("List name").
				Value(name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Category").
				Placeholder(model.DefaultCategory).
				Value(category),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("failed to read list details: %w", err)
	}
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid list id %q", s)
	}
	return id, nil
}

// parseItems turns name=quantity arguments into items.
func parseItems(raw []string) ([]model.Item, error) {
	var items []model.Item
	for _, r := range raw {
		name, qty, found := strings.Cut(r, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid item %q: name is required", r)
		}
		q := 1
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid item %q: quantity must be a non-negative number", r)
			}
			q = n
		}
		items = append(items, model.Item{Name: name, Quantity: q})
	}
	return items, nil
}

func filterCategory(lists []*localstore.GroceryList, category string) []*localstore.GroceryList {
	var out []*localstore.GroceryList
	for _, l := range lists {
		if strings.EqualFold(l.Category, category) {
			out = append(out, l)
		}
	}
	return out
}

func listTable(lists []*localstore.GroceryList) string {
	rows := make([][]string, 0, len(lists))
	for _, l := range lists {
		rows = append(rows, []string{strconv.Itoa(l.ID), l.Name, l.Category, strconv.Itoa(len(l.Items))})
	}
	return ui.Table([]string{"ID", "NAME", "CATEGORY", "ITEMS"}, rows)
}

func init() {
	lsCmd.Flags().String("category", "", "only show lists in this category")
	addCmd.Flags().StringP("category", "c", "", "list category (default General)")
	addCmd.Flags().StringArrayP("item", "i", nil, "item as name=quantity (repeatable)")

	rootCmd.AddCommand(lsCmd, showCmd, addCmd, renameCmd, setCategoryCmd, rmCmd, suggestCmd, watchCmd)
}
