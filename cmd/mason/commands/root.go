package commands

import (
	"github.com/spf13/cobra"

	"github.com/MEKXH/mason/internal/config"
)

var logLevelOverride string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mason",
		Short: "Mason - Risk-Gated AI Coding Assistant",
		Long: `Mason is an AI coding assistant that classifies the risk of every file
mutation and shell command, and asks for your permission before anything
dangerous runs. Destructive changes are backed up first.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" {
				return configureLogger(config.DefaultConfig(), logLevelOverride, false)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cfg, logLevelOverride, cmd.Name() == "chat")
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewInitCmd(),
		NewChatCmd(),
		NewApplyCmd(),
		NewExecCmd(),
		NewStatusCmd(),
		NewPermissionsCmd(),
		NewBackupCmd(),
		NewPolicyCmd(),
		NewVersionCmd(),
	)

	return cmd
}
