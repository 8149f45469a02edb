package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/executor"
	"github.com/spf13/cobra"
)

func NewExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a terminal command through the permission pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExec,
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	result, err := p.executor.ExecuteCommand(cmd.Context(), executor.CommandRequest{
		Command: strings.Join(args, " "),
	})
	if err != nil {
		return err
	}

	if result.Stdout != "" {
		fmt.Print(result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}
	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}
