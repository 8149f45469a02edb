package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/audit"
	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/spf13/cobra"
)

func NewPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage the safety mode",
	}

	cmd.AddCommand(
		newPolicyShowCmd(),
		newPolicySetCmd(),
		newPolicyRelaxCmd(),
		newPolicyRestoreCmd(),
	)

	return cmd
}

func newPolicyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured mode and any active override",
		RunE:  runPolicyShow,
	}
}

func newPolicySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <strict|moderate|relaxed>",
		Short: "Persist the safety mode in the config",
		Args:  cobra.ExactArgs(1),
		RunE:  runPolicySet,
	}
}

func newPolicyRelaxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relax",
		Short: "Temporarily switch to relaxed mode (TTL required)",
		RunE:  runPolicyRelax,
	}
	cmd.Flags().String("ttl", "", "TTL duration, for example 15m, 1h")
	return cmd
}

func newPolicyRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Clear any temporary override",
		RunE:  runPolicyRestore,
	}
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Safety mode:")
	fmt.Printf("  configured: %s\n", cfg.Safety.Mode)

	overrides := permission.NewOverrideManager(cfg.StatePath())
	st, err := overrides.Load()
	if err == nil && st.Active(time.Now()) {
		if st.Until.IsZero() {
			fmt.Printf("  override: %s (no expiry)\n", st.Mode)
		} else {
			fmt.Printf("  override: %s (expires %s)\n", st.Mode, st.Until.Local().Format(time.RFC3339))
		}
		fmt.Printf("  effective: %s\n", st.Mode)
	} else {
		fmt.Println("  override: none")
		fmt.Printf("  effective: %s\n", cfg.Safety.Mode)
	}
	return nil
}

func runPolicySet(cmd *cobra.Command, args []string) error {
	mode := strings.ToLower(strings.TrimSpace(args[0]))
	switch permission.Mode(mode) {
	case permission.ModeStrict, permission.ModeModerate, permission.ModeRelaxed:
	default:
		return fmt.Errorf("unknown safety mode %q (want strict, moderate or relaxed)", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Safety.Mode = mode
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	appendPolicyAudit(cfg, fmt.Sprintf("mode=%s persisted", mode))
	fmt.Printf("Safety mode set to %s.\n", mode)
	return nil
}

func runPolicyRelax(cmd *cobra.Command, args []string) error {
	ttlRaw, _ := cmd.Flags().GetString("ttl")
	ttlRaw = strings.TrimSpace(ttlRaw)
	if ttlRaw == "" {
		return fmt.Errorf("--ttl is required for policy relax")
	}
	ttl, err := time.ParseDuration(ttlRaw)
	if err != nil || ttl <= 0 {
		return fmt.Errorf("invalid --ttl duration: %q", ttlRaw)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	until := time.Now().UTC().Add(ttl)
	overrides := permission.NewOverrideManager(cfg.StatePath())
	if err := overrides.Save(permission.OverrideState{Mode: permission.ModeRelaxed, Until: until}); err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}

	appendPolicyAudit(cfg, fmt.Sprintf("mode=relaxed ttl=%s until=%s", ttl, until.Format(time.RFC3339)))
	fmt.Printf("Safety mode relaxed for %s (until %s).\n", ttl, until.Local().Format(time.RFC3339))
	return nil
}

func runPolicyRestore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := permission.NewOverrideManager(cfg.StatePath())
	if err := overrides.Clear(); err != nil {
		return fmt.Errorf("failed to clear override: %w", err)
	}

	appendPolicyAudit(cfg, "override cleared")
	fmt.Printf("Override cleared. Safety mode: %s.\n", cfg.Safety.Mode)
	return nil
}

func appendPolicyAudit(cfg *config.Config, result string) {
	if cfg == nil {
		return
	}
	evt := audit.Event{
		Time:   time.Now().UTC(),
		Type:   "policy_cli_switch",
		Result: result,
	}
	_ = audit.NewWriter(cfg.StatePath()).Append(evt)
}
