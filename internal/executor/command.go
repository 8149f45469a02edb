package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/audit"
	"github.com/MEKXH/mason/internal/risk"
)

var timeNow = time.Now

const defaultCommandTimeout = 60 * time.Second

// CommandRequest is a proposed terminal command.
type CommandRequest struct {
	Command    string `json:"command"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// CommandResult carries the outcome of an executed command.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// SetCommandTimeout overrides the default per-command timeout.
func (x *Executor) SetCommandTimeout(d time.Duration) {
	if d > 0 {
		x.commandTimeout = d
	}
}

// ExecuteCommand runs a terminal command through classification and
// permission before spawning the shell. A non-zero exit status is reported
// in the result, not as an error.
func (x *Executor) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResult, error) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return CommandResult{}, fmt.Errorf("command is required")
	}

	workDir := strings.TrimSpace(req.WorkingDir)
	if workDir != "" {
		if err := validatePath(workDir, x.workspace); err != nil {
			return CommandResult{}, err
		}
	} else {
		workDir = x.workspace
	}

	action := x.classifier.ClassifyCommand(risk.CommandInput{Command: command, WorkingDir: workDir})
	decision := x.permissions.Resolve(ctx, action)
	x.appendAudit(audit.Event{
		Type:     audit.TypeDecision,
		ActionID: action.ID,
		Category: string(action.Category),
		Risk:     string(action.Level),
		Decision: string(decision.Kind),
		Path:     workDir,
		Result:   decision.Reason,
	})

	if !decision.Kind.Allows() {
		slog.Info("command denied", "command", command, "reason", decision.Reason)
		return CommandResult{}, fmt.Errorf("run %s: %w", command, ErrDenied)
	}

	timeout := x.commandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(timeoutCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(timeoutCtx, "sh", "-c", command)
	}
	if workDir != "" {
		cmd.Dir = workDir
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			x.appendAudit(audit.Event{
				Type:     audit.TypeCommand,
				ActionID: action.ID,
				Result:   runErr.Error(),
			})
			return result, fmt.Errorf("run %s: %w", command, runErr)
		}
	}

	x.appendAudit(audit.Event{
		Type:     audit.TypeCommand,
		ActionID: action.ID,
		Result:   fmt.Sprintf("exit=%d", result.ExitCode),
	})
	return result, nil
}
