package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/risk"
)

type fakePrompter struct {
	choice permission.Choice
	asked  int
}

func (p *fakePrompter) Ask(ctx context.Context, req risk.ActionRequest) (permission.Choice, error) {
	p.asked++
	return p.choice, nil
}

type fixture struct {
	executor *Executor
	backups  *backup.Store
	prompter *fakePrompter
	dir      string
}

func newFixture(t *testing.T, mode permission.Mode, choice permission.Choice) fixture {
	t.Helper()
	dir := t.TempDir()
	prompter := &fakePrompter{choice: choice}
	engine := permission.NewEngine(mode, permission.NewStore(dir), prompter)
	backups := backup.NewStore(dir)
	return fixture{
		executor: New(risk.NewClassifier(risk.Ruleset{}), engine, backups, nil, ""),
		backups:  backups,
		prompter: prompter,
		dir:      dir,
	}
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, "project", name)
}

func (f fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := f.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestExecute_CreateWritesFile(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceNone)

	path := f.path("notes.md")
	err := f.executor.Execute(context.Background(), FileOperation{Type: OpCreate, Path: path, Content: "hello\n"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	if string(content) != "hello\n" {
		t.Fatalf("unexpected content %q", content)
	}
	if f.prompter.asked != 0 {
		t.Fatal("safe create under strict must not prompt")
	}
}

func TestExecute_DeniedStopsBeforeBackupAndMutation(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceDeny)
	path := f.write(t, "notes.txt", "keep me")

	err := f.executor.Execute(context.Background(), FileOperation{Type: OpDelete, Path: path})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatal("denied delete must not remove the file")
	}
	backups, _ := f.backups.List(path)
	if len(backups) != 0 {
		t.Fatal("denied operation must not create a backup")
	}
}

func TestExecute_BackupPrecedesModify(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)
	path := f.write(t, "config.ini", "old=1\n")

	err := f.executor.Execute(context.Background(), FileOperation{Type: OpModify, Path: path, Content: "new=2\n"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	backups, err := f.backups.List(path)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	snapshot, err := f.backups.Content(backups[0].ID)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(snapshot) != "old=1\n" {
		t.Fatalf("snapshot must hold pre-mutation content, got %q", snapshot)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "new=2\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestExecute_BackupFailureIsBestEffortForModify(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)

	// Block the backup directory with a regular file so snapshots fail.
	if err := os.WriteFile(filepath.Join(f.dir, "backups"), []byte("x"), 0644); err != nil {
		t.Fatalf("block backups dir: %v", err)
	}
	path := f.write(t, "main.go", "package old\n")

	err := f.executor.Execute(context.Background(), FileOperation{Type: OpModify, Path: path, Content: "package new\n"})
	if err != nil {
		t.Fatalf("modify must proceed despite backup failure: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "package new\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestExecute_CriticalDeleteBlockedWhenBackupFails(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)

	if err := os.WriteFile(filepath.Join(f.dir, "backups"), []byte("x"), 0644); err != nil {
		t.Fatalf("block backups dir: %v", err)
	}
	path := f.write(t, ".env", "SECRET=1\n")

	err := f.executor.Execute(context.Background(), FileOperation{Type: OpDelete, Path: path})
	if err == nil {
		t.Fatal("critical delete without backup must fail")
	}
	if !strings.Contains(err.Error(), "backup required") {
		t.Fatalf("unexpected error %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatal("blocked delete must leave the file in place")
	}
}

func TestExecute_DeleteRemovesFileAfterBackup(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)
	path := f.write(t, "scratch.txt", "bye")

	err := f.executor.Execute(context.Background(), FileOperation{Type: OpDelete, Path: path})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("expected file removed")
	}
	backups, _ := f.backups.List(path)
	if len(backups) != 1 {
		t.Fatalf("expected backup before delete, got %d", len(backups))
	}
}

func TestExecute_ModifyAppliesDiff(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)
	path := f.write(t, "list.txt", "one\ntwo\nthree\n")

	diff := "@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n"
	err := f.executor.Execute(context.Background(), FileOperation{Type: OpModify, Path: path, Diff: diff})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "one\nTWO\nthree\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestExecute_RenameAndMove(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)
	path := f.write(t, "a.txt", "data")

	renamed := f.path("b.txt")
	if err := f.executor.Execute(context.Background(), FileOperation{Type: OpRename, Path: path, NewPath: renamed}); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := os.Stat(renamed); err != nil {
		t.Fatal("expected renamed file")
	}

	moved := f.path("nested/dir/c.txt")
	if err := f.executor.Execute(context.Background(), FileOperation{Type: OpMove, Path: renamed, NewPath: moved}); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if _, err := os.Stat(moved); err != nil {
		t.Fatal("expected moved file")
	}
}

func TestExecute_MoveRefusesOverwrite(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)
	src := f.write(t, "src.txt", "src")
	dst := f.write(t, "dst.txt", "dst")

	err := f.executor.Execute(context.Background(), FileOperation{Type: OpMove, Path: src, NewPath: dst})
	if err == nil {
		t.Fatal("move onto existing destination must fail")
	}

	content, _ := os.ReadFile(dst)
	if string(content) != "dst" {
		t.Fatal("destination must be untouched")
	}
}

func TestExecute_WorkspaceBoundary(t *testing.T) {
	dir := t.TempDir()
	workspace := filepath.Join(dir, "ws")
	if err := os.MkdirAll(workspace, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	engine := permission.NewEngine(permission.ModeRelaxed, permission.NewStore(dir), nil)
	x := New(risk.NewClassifier(risk.Ruleset{}), engine, backup.NewStore(dir), nil, workspace)

	outside := filepath.Join(dir, "outside.txt")
	err := x.Execute(context.Background(), FileOperation{Type: OpCreate, Path: outside, Content: "x"})
	if err == nil || !strings.Contains(err.Error(), "outside workspace") {
		t.Fatalf("expected boundary error, got %v", err)
	}
}

func TestExecuteBatch_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)

	missing := f.path("missing.txt")
	later := f.path("later.txt")
	err := f.executor.ExecuteBatch(context.Background(), []FileOperation{
		{Type: OpModify, Path: missing, Content: "x"},
		{Type: OpCreate, Path: later, Content: "y"},
	})
	if err == nil {
		t.Fatal("expected batch failure")
	}
	if !strings.Contains(err.Error(), "operation 1 of 2") {
		t.Fatalf("error must identify the failed operation, got %v", err)
	}
	if _, statErr := os.Stat(later); !os.IsNotExist(statErr) {
		t.Fatal("operations after the failure must not run")
	}
}

func TestExecuteBatch_LaterOperationSeesEarlierWrite(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceAllowOnce)
	path := f.path("gen.txt")

	diff := "@@ -1,1 +1,2 @@\n v1\n+v2\n"
	err := f.executor.ExecuteBatch(context.Background(), []FileOperation{
		{Type: OpCreate, Path: path, Content: "v1\n"},
		{Type: OpModify, Path: path, Diff: diff},
	})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "v1\nv2\n" {
		t.Fatalf("modify must see the just-created content, got %q", content)
	}
}

func TestExecuteRefactor_DenyStopsAllOperations(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceDeny)

	path := f.path("big.go")
	ops := []FileOperation{{Type: OpCreate, Path: path, Content: strings.Repeat("line\n", 200)}}

	err := f.executor.ExecuteRefactor(context.Background(), ops)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("denied refactor must not write files")
	}
}

func TestExecuteCommand_RunsApprovedCommand(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceNone)

	result, err := f.executor.ExecuteCommand(context.Background(), CommandRequest{Command: "echo hello"})
	if err != nil {
		t.Fatalf("execute command failed: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Fatalf("unexpected exit code %d", result.ExitCode)
	}
}

func TestExecuteCommand_DeniedBeforeSpawn(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceDeny)

	marker := f.path("marker.txt")
	_, err := f.executor.ExecuteCommand(context.Background(), CommandRequest{
		Command: "sudo touch " + marker,
	})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatal("denied command must not run")
	}
}

func TestExecuteCommand_NonZeroExitIsNotError(t *testing.T) {
	f := newFixture(t, permission.ModeStrict, permission.ChoiceNone)

	result, err := f.executor.ExecuteCommand(context.Background(), CommandRequest{Command: "exit 3"})
	if err != nil {
		t.Fatalf("execute command failed: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestExecute_ValidateRejectsBadOperations(t *testing.T) {
	f := newFixture(t, permission.ModeRelaxed, permission.ChoiceNone)

	cases := []FileOperation{
		{Type: OpCreate},
		{Type: OpModify, Path: "/tmp/x"},
		{Type: OpRename, Path: "/tmp/x"},
		{Type: "truncate", Path: "/tmp/x"},
	}
	for _, op := range cases {
		if err := f.executor.Execute(context.Background(), op); err == nil {
			t.Fatalf("expected validation error for %+v", op)
		}
	}
}
