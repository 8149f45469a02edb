package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/executor"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/risk"
)

func newExecutor(t *testing.T, mode permission.Mode) (*executor.Executor, *backup.Store, string) {
	t.Helper()
	dir := t.TempDir()
	engine := permission.NewEngine(mode, permission.NewStore(dir), nil)
	backups := backup.NewStore(dir)
	return executor.New(risk.NewClassifier(risk.Ruleset{}), engine, backups, nil, ""), backups, dir
}

func TestApplyOperationTool_CreatesFile(t *testing.T) {
	x, _, dir := newExecutor(t, permission.ModeStrict)
	applyTool, err := NewApplyOperationTool(x)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	path := filepath.Join(dir, "out.txt")
	args := fmt.Sprintf(`{"type": "create", "path": %q, "content": "hi\n"}`, path)
	result, err := applyTool.InvokableRun(context.Background(), args)
	if err != nil {
		t.Fatalf("InvokableRun error: %v", err)
	}
	if !strings.Contains(result, "Applied create") {
		t.Fatalf("unexpected result: %q", result)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	if string(content) != "hi\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestApplyOperationTool_DenialIsResultNotError(t *testing.T) {
	// Strict mode with no prompter denies anything above safe.
	x, _, dir := newExecutor(t, permission.ModeStrict)
	applyTool, err := NewApplyOperationTool(x)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	path := filepath.Join(dir, "victim.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	args := fmt.Sprintf(`{"type": "delete", "path": %q}`, path)
	result, err := applyTool.InvokableRun(context.Background(), args)
	if err != nil {
		t.Fatalf("denial must not surface as error: %v", err)
	}
	if !strings.Contains(result, "Denied") {
		t.Fatalf("expected denial message, got %q", result)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatal("denied delete must not remove the file")
	}
}

func TestApplyBatchTool_AppliesInOrder(t *testing.T) {
	x, _, dir := newExecutor(t, permission.ModeStrict)
	batchTool, err := NewApplyBatchTool(x)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	path := filepath.Join(dir, "gen.txt")
	args := fmt.Sprintf(`{"operations": [
		{"type": "create", "path": %q, "content": "v1\n"},
		{"type": "modify", "path": %q, "content": "v2\n"}
	]}`, path, path)

	result, err := batchTool.InvokableRun(context.Background(), args)
	if err != nil {
		t.Fatalf("InvokableRun error: %v", err)
	}
	if !strings.Contains(result, "Applied 2 operations") {
		t.Fatalf("unexpected result: %q", result)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "v2\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestRunCommandTool_CapturesOutput(t *testing.T) {
	x, _, _ := newExecutor(t, permission.ModeStrict)
	cmdTool, err := NewRunCommandTool(x)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	result, err := cmdTool.InvokableRun(context.Background(), `{"command": "echo tooling"}`)
	if err != nil {
		t.Fatalf("InvokableRun error: %v", err)
	}

	var out RunCommandOutput
	if err := json.Unmarshal([]byte(result), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if strings.TrimSpace(out.Stdout) != "tooling" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
	if out.ExitCode != 0 || out.Denied {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestRunCommandTool_DeniedCommand(t *testing.T) {
	x, _, _ := newExecutor(t, permission.ModeStrict)
	cmdTool, err := NewRunCommandTool(x)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	result, err := cmdTool.InvokableRun(context.Background(), `{"command": "sudo reboot"}`)
	if err != nil {
		t.Fatalf("denial must not surface as error: %v", err)
	}

	var out RunCommandOutput
	if err := json.Unmarshal([]byte(result), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !out.Denied {
		t.Fatalf("expected denied output, got %+v", out)
	}
}

func TestBackupTools_ListAndRestore(t *testing.T) {
	x, backups, dir := newExecutor(t, permission.ModeStrict)

	// A modify produces a backup of the old content.
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	op := executor.FileOperation{Type: executor.OpModify, Path: path, Content: "new"}
	if err := x.Execute(context.Background(), op); err != nil {
		t.Fatalf("execute: %v", err)
	}

	listTool, err := NewListBackupsTool(backups)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}
	result, err := listTool.InvokableRun(context.Background(), fmt.Sprintf(`{"path": %q}`, path))
	if err != nil {
		t.Fatalf("InvokableRun error: %v", err)
	}

	var entries []BackupEntry
	if err := json.Unmarshal([]byte(result), &entries); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(entries))
	}

	restoreTool, err := NewRestoreBackupTool(backups)
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}
	if _, err := restoreTool.InvokableRun(context.Background(), fmt.Sprintf(`{"id": %q}`, entries[0].ID)); err != nil {
		t.Fatalf("restore: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "old" {
		t.Fatalf("expected restored content, got %q", content)
	}
}
