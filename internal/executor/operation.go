package executor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OpType enumerates file mutation kinds.
type OpType string

const (
	OpCreate OpType = "create"
	OpModify OpType = "modify"
	OpDelete OpType = "delete"
	OpRename OpType = "rename"
	OpMove   OpType = "move"
)

// FileOperation is one mutation instruction. Produced upstream (agent
// response parsing or the CLI apply path), consumed by the executor.
type FileOperation struct {
	Type    OpType `json:"type"`
	Path    string `json:"path"`
	NewPath string `json:"new_path,omitempty"`
	Content string `json:"content,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// Validate checks structural requirements before classification.
func (op FileOperation) Validate() error {
	if strings.TrimSpace(op.Path) == "" {
		return fmt.Errorf("operation path is required")
	}

	switch op.Type {
	case OpCreate:
		return nil
	case OpModify:
		if op.Content == "" && op.Diff == "" {
			return fmt.Errorf("modify requires content or diff")
		}
		return nil
	case OpDelete:
		return nil
	case OpRename, OpMove:
		if strings.TrimSpace(op.NewPath) == "" {
			return fmt.Errorf("%s requires new_path", op.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// payload returns the content used for risk sizing.
func (op FileOperation) payload() string {
	if op.Content != "" {
		return op.Content
	}
	return op.Diff
}

// validatePath checks that the given path is within the workspace boundary.
// An empty workspace disables the check.
func validatePath(path, workspacePath string) error {
	if workspacePath == "" {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absPath = filepath.Clean(absPath)
	cleanWorkspace := filepath.Clean(workspacePath)

	if !strings.HasPrefix(absPath, cleanWorkspace+string(filepath.Separator)) && absPath != cleanWorkspace {
		return fmt.Errorf("access denied: path %q is outside workspace %q", absPath, cleanWorkspace)
	}
	return nil
}

// ValidatePath is the exported workspace boundary check used by read-only
// tools that bypass the mutation pipeline.
func ValidatePath(path, workspacePath string) error {
	return validatePath(path, workspacePath)
}
