package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage pre-mutation file backups",
	}

	cmd.AddCommand(
		newBackupCreateCmd(),
		newBackupListCmd(),
		newBackupRestoreCmd(),
		newBackupDeleteCmd(),
		newBackupPruneCmd(),
	)

	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <file>",
		Short: "Snapshot a file manually",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupCreate,
	}
}

func newBackupListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [file]",
		Short: "List backups, optionally for one file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBackupList,
	}
	return cmd
}

func newBackupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore a file from a backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupRestore,
	}
}

func newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a single backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupDelete,
	}
}

func newBackupPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete backups older than the retention window",
		RunE:  runBackupPrune,
	}
	cmd.Flags().Int("max-age", 0, "maximum age in days (default from config)")
	return cmd
}

func loadBackupStore() (*backup.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return backup.NewStore(cfg.StatePath()), cfg, nil
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	store, _, err := loadBackupStore()
	if err != nil {
		return err
	}

	b, err := store.Create(args[0], "manual backup")
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	fmt.Printf("Backed up %s as %s (%d bytes)\n", b.FilePath, b.ID, b.Size)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	store, _, err := loadBackupStore()
	if err != nil {
		return err
	}

	var backups []backup.Backup
	if len(args) == 1 {
		backups, err = store.List(args[0])
	} else {
		backups, err = store.ListAll()
	}
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		fmt.Println("No backups.")
		return nil
	}

	// Styles matching status.go
	var (
		headerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#8E4EC6")). // Purple
				Padding(0, 1).
				MarginBottom(1)

		// Column Widths
		wID     = 12
		wFile   = 40
		wWhen   = 22
		wSize   = 10
		wReason = 24

		colHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8E4EC6")).
				Bold(true).
				MarginRight(1)

		idStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(wID).
			MarginRight(1)

		fileStyle = lipgloss.NewStyle().
				Width(wFile).
				MarginRight(1)

		whenStyle = lipgloss.NewStyle().
				Width(wWhen).
				MarginRight(1)

		sizeStyle = lipgloss.NewStyle().
				Width(wSize).
				MarginRight(1)

		reasonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Width(wReason).
				MarginRight(1)
	)

	fmt.Println(headerStyle.Render("Backups"))

	headers := lipgloss.JoinHorizontal(lipgloss.Top,
		colHeaderStyle.Width(wID).Render("ID"),
		colHeaderStyle.Width(wFile).Render("FILE"),
		colHeaderStyle.Width(wWhen).Render("CREATED"),
		colHeaderStyle.Width(wSize).Render("SIZE"),
		colHeaderStyle.Width(wReason).Render("REASON"),
	)
	fmt.Printf("  %s\n", headers)

	sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)
	separator := lipgloss.JoinHorizontal(lipgloss.Top,
		sepStyle.Render(strings.Repeat("─", wID)),
		sepStyle.Render(strings.Repeat("─", wFile)),
		sepStyle.Render(strings.Repeat("─", wWhen)),
		sepStyle.Render(strings.Repeat("─", wSize)),
		sepStyle.Render(strings.Repeat("─", wReason)),
	)
	fmt.Printf("  %s\n", separator)

	for _, b := range backups {
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			idStyle.Render(shortID(b.ID)),
			fileStyle.Render(truncate(b.FilePath, wFile)),
			whenStyle.Render(b.Timestamp.Local().Format("2006-01-02 15:04:05")),
			sizeStyle.Render(fmt.Sprintf("%d B", b.Size)),
			reasonStyle.Render(truncate(b.Reason, wReason)),
		)
		fmt.Printf("  %s\n", row)
	}

	fmt.Println()
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	store, _, err := loadBackupStore()
	if err != nil {
		return err
	}

	b, err := store.Get(args[0])
	if err != nil {
		return err
	}
	if err := store.Restore(args[0]); err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}

	fmt.Printf("Restored %s from backup %s\n", b.FilePath, shortID(b.ID))
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	store, _, err := loadBackupStore()
	if err != nil {
		return err
	}

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	fmt.Printf("Deleted backup %s\n", args[0])
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	store, cfg, err := loadBackupStore()
	if err != nil {
		return err
	}

	maxAgeDays, _ := cmd.Flags().GetInt("max-age")
	if maxAgeDays <= 0 {
		maxAgeDays = cfg.Backups.MaxAgeDays
	}
	if maxAgeDays <= 0 {
		fmt.Println("Retention is set to keep forever; pass --max-age to prune anyway.")
		return nil
	}

	removed, err := store.PruneOlderThan(time.Duration(maxAgeDays) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("failed to prune: %w", err)
	}

	fmt.Printf("Pruned %d backups older than %d days\n", removed, maxAgeDays)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
