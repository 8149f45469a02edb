package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MEKXH/mason/internal/agent"
	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/executor"
	"github.com/spf13/cobra"
)

func NewApplyCmd() *cobra.Command {
	var refactor bool

	cmd := &cobra.Command{
		Use:   "apply [plan-file]",
		Short: "Apply a plan of file operations",
		Long: `Apply reads a plan of file operations from a file (or stdin when no
file is given) and executes it through the permission pipeline. The plan
is either a raw JSON array of operations or model output containing
fenced JSON blocks.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args, refactor)
		},
	}
	cmd.Flags().BoolVar(&refactor, "refactor", false, "gate the whole plan as a single large refactor before per-operation checks")
	return cmd
}

func runApply(cmd *cobra.Command, args []string, refactor bool) error {
	var (
		raw []byte
		err error
	)
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read plan: %w", err)
		}
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read plan from stdin: %w", err)
		}
	}

	ops := parsePlan(raw)
	if len(ops) == 0 {
		return fmt.Errorf("no valid operations found in plan")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if refactor {
		err = p.executor.ExecuteRefactor(ctx, ops)
	} else {
		err = p.executor.ExecuteBatch(ctx, ops)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Applied %d operations\n", len(ops))
	return nil
}

// parsePlan accepts either a bare JSON array of operations or free-form
// text with fenced JSON blocks, which is how models emit plans.
func parsePlan(raw []byte) []executor.FileOperation {
	var ops []executor.FileOperation
	if err := json.Unmarshal(raw, &ops); err == nil {
		valid := ops[:0]
		for _, op := range ops {
			if op.Validate() == nil {
				valid = append(valid, op)
			}
		}
		return valid
	}
	return agent.ExtractOperations(string(raw))
}
