package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/MEKXH/mason/internal/executor"
)

// ApplyOperationInput parameters for the apply_operation tool.
type ApplyOperationInput struct {
	Type    string `json:"type" jsonschema:"required,description=Operation type: create, modify, delete, rename or move"`
	Path    string `json:"path" jsonschema:"required,description=Absolute path of the target file"`
	NewPath string `json:"new_path" jsonschema:"description=Destination path for rename and move"`
	Content string `json:"content" jsonschema:"description=Full file content for create or modify"`
	Diff    string `json:"diff" jsonschema:"description=Unified diff to apply for modify"`
}

func (in ApplyOperationInput) operation() executor.FileOperation {
	return executor.FileOperation{
		Type:    executor.OpType(in.Type),
		Path:    in.Path,
		NewPath: in.NewPath,
		Content: in.Content,
		Diff:    in.Diff,
	}
}

type applyOperationToolImpl struct {
	executor *executor.Executor
}

func (t *applyOperationToolImpl) execute(ctx context.Context, input *ApplyOperationInput) (string, error) {
	err := t.executor.Execute(ctx, input.operation())
	if err != nil {
		// A denial is an answer, not a failure. Report it so the model can
		// adjust instead of aborting the whole turn.
		if errors.Is(err, executor.ErrDenied) {
			return fmt.Sprintf("Denied: %v", err), nil
		}
		return "", err
	}
	return fmt.Sprintf("Applied %s: %s", input.Type, input.Path), nil
}

// NewApplyOperationTool creates the apply_operation tool. Every mutation it
// performs passes risk classification and the permission gate first.
func NewApplyOperationTool(x *executor.Executor) (tool.InvokableTool, error) {
	impl := &applyOperationToolImpl{executor: x}
	return utils.InferTool("apply_operation", "Apply a single file operation (create, modify, delete, rename, move)", impl.execute)
}

// ApplyBatchInput parameters for the apply_batch tool.
type ApplyBatchInput struct {
	Operations []ApplyOperationInput `json:"operations" jsonschema:"required,description=Operations to apply in order"`
	Refactor   bool                  `json:"refactor" jsonschema:"description=Ask one up-front approval for the whole change before the per-operation gates"`
}

type applyBatchToolImpl struct {
	executor *executor.Executor
}

func (t *applyBatchToolImpl) execute(ctx context.Context, input *ApplyBatchInput) (string, error) {
	ops := make([]executor.FileOperation, 0, len(input.Operations))
	for _, in := range input.Operations {
		ops = append(ops, in.operation())
	}

	var err error
	if input.Refactor {
		err = t.executor.ExecuteRefactor(ctx, ops)
	} else {
		err = t.executor.ExecuteBatch(ctx, ops)
	}
	if err != nil {
		if errors.Is(err, executor.ErrDenied) {
			return fmt.Sprintf("Denied: %v", err), nil
		}
		return "", err
	}
	return fmt.Sprintf("Applied %d operations", len(ops)), nil
}

// NewApplyBatchTool creates the apply_batch tool. Operations run in order
// and the batch stops at the first failure; completed operations stay.
func NewApplyBatchTool(x *executor.Executor) (tool.InvokableTool, error) {
	impl := &applyBatchToolImpl{executor: x}
	return utils.InferTool("apply_batch", "Apply multiple file operations sequentially", impl.execute)
}

// RunCommandInput parameters for the run_command tool.
type RunCommandInput struct {
	Command    string `json:"command" jsonschema:"required,description=Shell command to execute"`
	WorkingDir string `json:"working_dir" jsonschema:"description=Working directory (defaults to the workspace)"`
}

// RunCommandOutput result of the run_command tool.
type RunCommandOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Denied   bool   `json:"denied,omitempty"`
}

type runCommandToolImpl struct {
	executor *executor.Executor
}

func (t *runCommandToolImpl) execute(ctx context.Context, input *RunCommandInput) (*RunCommandOutput, error) {
	result, err := t.executor.ExecuteCommand(ctx, executor.CommandRequest{
		Command:    input.Command,
		WorkingDir: input.WorkingDir,
	})
	if err != nil {
		if errors.Is(err, executor.ErrDenied) {
			return &RunCommandOutput{Stderr: err.Error(), ExitCode: -1, Denied: true}, nil
		}
		return nil, err
	}
	return &RunCommandOutput{
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
	}, nil
}

// NewRunCommandTool creates the run_command tool. Commands pass the same
// risk classification and permission gate as file operations.
func NewRunCommandTool(x *executor.Executor) (tool.InvokableTool, error) {
	impl := &runCommandToolImpl{executor: x}
	return utils.InferTool("run_command", "Execute a shell command", impl.execute)
}
