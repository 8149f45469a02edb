package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show Mason configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	workspacePath, err := cfg.WorkspacePathChecked()
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	fmt.Println("=== Mason Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (run 'mason init')")
	}

	fmt.Printf("\nWorkspace: %s\n", workspacePath)
	if _, err := os.Stat(workspacePath); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found")
	}
	workspaceMode := strings.TrimSpace(cfg.Agents.Defaults.WorkspaceMode)
	if workspaceMode == "" {
		workspaceMode = "default"
	}
	fmt.Printf("  Mode: %s\n", workspaceMode)

	fmt.Printf("\nModel: %s\n", cfg.Agents.Defaults.Model)

	fmt.Println("\nProviders:")
	providers := map[string]string{
		"OpenRouter": cfg.Providers.OpenRouter.APIKey,
		"Claude":     cfg.Providers.Claude.APIKey,
		"OpenAI":     cfg.Providers.OpenAI.APIKey,
		"DeepSeek":   cfg.Providers.DeepSeek.APIKey,
		"Ollama":     cfg.Providers.Ollama.BaseURL,
	}
	for name, key := range providers {
		status := "Not configured"
		if key != "" {
			status = "Configured"
		}
		fmt.Printf("  %s: %s\n", name, status)
	}

	// Safety
	stateDir := cfg.StatePath()
	fmt.Println("\nSafety:")
	fmt.Printf("  Configured mode: %s\n", cfg.Safety.Mode)
	overrides := permission.NewOverrideManager(stateDir)
	if st, err := overrides.Load(); err == nil && st.Active(time.Now()) {
		if st.Until.IsZero() {
			fmt.Printf("  Active override: %s (no expiry)\n", st.Mode)
		} else {
			fmt.Printf("  Active override: %s (until %s)\n", st.Mode, st.Until.Local().Format(time.RFC3339))
		}
	} else {
		fmt.Println("  Active override: none")
	}
	fmt.Printf("  Prompt channel: %s\n", cfg.Prompt.Channel)

	// Permission memory
	fmt.Println("\nPermissions:")
	store := permission.NewStore(stateDir)
	if stats, err := store.GetStats(); err == nil {
		fmt.Printf("  Remembered: %d total (%d always-allow, %d deny)\n",
			stats.Total, stats.AlwaysAllow, stats.Deny)
	} else {
		fmt.Println("  Remembered: unavailable")
	}

	// Backups
	fmt.Println("\nBackups:")
	backups := backup.NewStore(stateDir)
	if all, err := backups.ListAll(); err == nil {
		var size int64
		for _, b := range all {
			size += b.Size
		}
		fmt.Printf("  Stored: %d (%d bytes)\n", len(all), size)
	} else {
		fmt.Println("  Stored: unavailable")
	}
	fmt.Printf("  Max age: %s\n", describeBackupAge(cfg.Backups.MaxAgeDays))

	// Tools
	fmt.Println("\nTools:")
	fmt.Println("  read_file: ready")
	fmt.Println("  list_dir: ready")
	fmt.Println("  apply_operation: ready")
	fmt.Println("  apply_batch: ready")
	fmt.Printf("  run_command: ready (timeout=%ds, restrict_to_workspace=%v)\n",
		cfg.Tools.Exec.Timeout, cfg.Tools.Exec.RestrictToWorkspace)
	fmt.Println("  list_backups: ready")
	fmt.Println("  restore_backup: ready")

	return nil
}

func describeBackupAge(days int) string {
	if days <= 0 {
		return "keep forever"
	}
	return fmt.Sprintf("%d days", days)
}
