package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/risk"
	"github.com/spf13/cobra"
)

func NewPermissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Manage remembered permission decisions",
	}

	cmd.AddCommand(
		newPermissionsListCmd(),
		newPermissionsRemoveCmd(),
		newPermissionsClearCmd(),
	)

	return cmd
}

func newPermissionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remembered per-category decisions",
		RunE:  runPermissionsList,
	}
}

func newPermissionsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <category>",
		Short: "Forget the remembered decision for one category",
		Args:  cobra.ExactArgs(1),
		RunE:  runPermissionsRemove,
	}
}

func newPermissionsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all remembered decisions",
		RunE:  runPermissionsClear,
	}
}

func loadPermissionStore() (*permission.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return permission.NewStore(cfg.StatePath()), nil
}

func runPermissionsList(cmd *cobra.Command, args []string) error {
	store, err := loadPermissionStore()
	if err != nil {
		return err
	}

	entries, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to read permissions: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No remembered decisions.")
		return nil
	}

	categories := make([]risk.Category, 0, len(entries))
	for c := range entries {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	fmt.Println("Remembered decisions:")
	for _, c := range categories {
		e := entries[c]
		fmt.Printf("  %-18s %-13s used %d times, last %s\n",
			c, e.Decision, e.UseCount, e.LastUsed.Local().Format(time.RFC3339))
	}

	if stats, err := store.GetStats(); err == nil {
		fmt.Printf("\n%d total (%d always-allow, %d deny)\n",
			stats.Total, stats.AlwaysAllow, stats.Deny)
	}
	return nil
}

func runPermissionsRemove(cmd *cobra.Command, args []string) error {
	category := risk.Category(strings.TrimSpace(args[0]))

	store, err := loadPermissionStore()
	if err != nil {
		return err
	}

	entries, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to read permissions: %w", err)
	}
	if _, ok := entries[category]; !ok {
		return fmt.Errorf("no remembered decision for category %q", category)
	}
	if err := store.Remove(category); err != nil {
		return fmt.Errorf("failed to remove decision: %w", err)
	}

	fmt.Printf("Forgot decision for %s.\n", category)
	return nil
}

func runPermissionsClear(cmd *cobra.Command, args []string) error {
	store, err := loadPermissionStore()
	if err != nil {
		return err
	}

	stats, _ := store.GetStats()
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear decisions: %w", err)
	}

	fmt.Printf("Cleared %d remembered decisions.\n", stats.Total)
	return nil
}
