package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/audit"
	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/risk"
)

const fileMode = 0644

// ErrDenied is returned when permission resolution denies the mutation.
var ErrDenied = errors.New("operation denied by user")

// Executor runs the full pipeline for each mutation: classify, resolve
// permission, back up, apply. Operations are processed one at a time; an
// operation completes fully before the next begins.
type Executor struct {
	classifier     *risk.Classifier
	permissions    *permission.Engine
	backups        *backup.Store
	audit          *audit.Writer
	workspace      string
	commandTimeout time.Duration
}

// New builds an executor. An empty workspace disables the boundary check;
// audit may be nil.
func New(classifier *risk.Classifier, permissions *permission.Engine, backups *backup.Store, auditWriter *audit.Writer, workspace string) *Executor {
	return &Executor{
		classifier:     classifier,
		permissions:    permissions,
		backups:        backups,
		audit:          auditWriter,
		workspace:      workspace,
		commandTimeout: defaultCommandTimeout,
	}
}

// Classify scores an operation without executing it.
func (x *Executor) Classify(op FileOperation) risk.ActionRequest {
	return x.classifier.ClassifyFile(risk.FileInput{
		Operation: string(op.Type),
		Path:      op.Path,
		NewPath:   op.NewPath,
		Content:   op.payload(),
	})
}

// Execute runs one operation through the pipeline. A denied permission stops
// before any backup or filesystem call.
func (x *Executor) Execute(ctx context.Context, op FileOperation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	if err := validatePath(op.Path, x.workspace); err != nil {
		return err
	}
	if op.NewPath != "" {
		if err := validatePath(op.NewPath, x.workspace); err != nil {
			return err
		}
	}

	req := x.Classify(op)
	decision := x.permissions.Resolve(ctx, req)
	x.appendAudit(audit.Event{
		Type:     audit.TypeDecision,
		ActionID: req.ID,
		Category: string(req.Category),
		Risk:     string(req.Level),
		Decision: string(decision.Kind),
		Path:     op.Path,
		Result:   decision.Reason,
	})

	if !decision.Kind.Allows() {
		slog.Info("operation denied", "type", op.Type, "path", op.Path, "reason", decision.Reason)
		return fmt.Errorf("%s %s: %w", op.Type, op.Path, ErrDenied)
	}

	if err := x.backupBeforeMutation(op, req); err != nil {
		return err
	}

	if err := x.apply(op); err != nil {
		slog.Error("operation failed", "type", op.Type, "path", op.Path, "error", err)
		x.appendAudit(audit.Event{
			Type:     audit.TypeMutation,
			ActionID: req.ID,
			Category: string(req.Category),
			Risk:     string(req.Level),
			Path:     op.Path,
			Result:   err.Error(),
		})
		return err
	}

	slog.Info("operation applied", "type", op.Type, "path", op.Path)
	x.appendAudit(audit.Event{
		Type:     audit.TypeMutation,
		ActionID: req.ID,
		Category: string(req.Category),
		Risk:     string(req.Level),
		Path:     op.Path,
		Result:   "ok",
	})
	return nil
}

// ExecuteBatch processes operations strictly in order and stops at the first
// failure. Already-applied operations are not rolled back.
func (x *Executor) ExecuteBatch(ctx context.Context, ops []FileOperation) error {
	for i, op := range ops {
		if err := x.Execute(ctx, op); err != nil {
			return fmt.Errorf("batch operation %d of %d (%s %s): %w", i+1, len(ops), op.Type, op.Path, err)
		}
	}
	return nil
}

// ExecuteRefactor resolves a whole multi-file change as one large-refactor
// request before running the individual operations. The per-operation gates
// still apply, so a critical member cannot ride in on a refactor approval.
func (x *Executor) ExecuteRefactor(ctx context.Context, ops []FileOperation) error {
	if len(ops) == 0 {
		return nil
	}

	files := make([]string, 0, len(ops))
	lines := 0
	for _, op := range ops {
		files = append(files, op.Path)
		if payload := op.payload(); payload != "" {
			lines += strings.Count(payload, "\n") + 1
		}
	}

	req := x.classifier.ClassifyRefactor(risk.RefactorInput{Files: files, LinesChanged: lines})
	decision := x.permissions.Resolve(ctx, req)
	x.appendAudit(audit.Event{
		Type:     audit.TypeDecision,
		ActionID: req.ID,
		Category: string(req.Category),
		Risk:     string(req.Level),
		Decision: string(decision.Kind),
		Result:   decision.Reason,
	})
	if !decision.Kind.Allows() {
		return fmt.Errorf("refactor of %d files: %w", len(ops), ErrDenied)
	}

	return x.ExecuteBatch(ctx, ops)
}

// backupBeforeMutation snapshots the target for destructive operation types.
// Backups are best-effort except for critical-risk deletes, which must not
// proceed without one.
func (x *Executor) backupBeforeMutation(op FileOperation, req risk.ActionRequest) error {
	switch op.Type {
	case OpModify, OpDelete, OpRename, OpMove:
	default:
		return nil
	}

	b, err := x.backups.Create(op.Path, "Before "+string(op.Type))
	if err != nil {
		if op.Type == OpDelete && req.Level == risk.LevelCritical {
			return fmt.Errorf("backup required before critical delete of %s: %w", op.Path, err)
		}
		slog.Warn("backup failed, proceeding without snapshot", "type", op.Type, "path", op.Path, "error", err)
		return nil
	}

	x.appendAudit(audit.Event{
		Type:     audit.TypeBackup,
		ActionID: req.ID,
		Path:     op.Path,
		Result:   b.ID,
	})
	return nil
}

func (x *Executor) apply(op FileOperation) error {
	switch op.Type {
	case OpCreate:
		if err := os.MkdirAll(filepath.Dir(op.Path), 0755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
		if err := os.WriteFile(op.Path, []byte(op.Content), fileMode); err != nil {
			return fmt.Errorf("create %s: %w", op.Path, err)
		}
		return nil

	case OpModify:
		current, err := os.ReadFile(op.Path)
		if err != nil {
			return fmt.Errorf("modify %s: %w", op.Path, err)
		}
		next := op.Content
		if op.Diff != "" {
			patched, err := applyDiff(string(current), op.Diff)
			if err != nil {
				return fmt.Errorf("modify %s: %w", op.Path, err)
			}
			next = patched
		}
		if err := os.WriteFile(op.Path, []byte(next), fileMode); err != nil {
			return fmt.Errorf("modify %s: %w", op.Path, err)
		}
		return nil

	case OpDelete:
		if err := os.Remove(op.Path); err != nil {
			return fmt.Errorf("delete %s: %w", op.Path, err)
		}
		return nil

	case OpRename:
		if err := os.Rename(op.Path, op.NewPath); err != nil {
			return fmt.Errorf("rename %s: %w", op.Path, err)
		}
		return nil

	case OpMove:
		if _, err := os.Stat(op.NewPath); err == nil {
			return fmt.Errorf("move %s: destination %s already exists", op.Path, op.NewPath)
		}
		if err := os.MkdirAll(filepath.Dir(op.NewPath), 0755); err != nil {
			return fmt.Errorf("create destination dir: %w", err)
		}
		if err := os.Rename(op.Path, op.NewPath); err != nil {
			return fmt.Errorf("move %s: %w", op.Path, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (x *Executor) appendAudit(event audit.Event) {
	if x.audit == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = timeNow()
	}
	if err := x.audit.Append(event); err != nil {
		slog.Warn("append audit event failed", "type", event.Type, "error", err)
	}
}
