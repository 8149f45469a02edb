package risk

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Classifier scores proposed operations. Classification is deterministic
// and performs no I/O; missing information degrades to safe.
type Classifier struct {
	rules Ruleset
	now   func() time.Time
	newID func() string
}

// NewClassifier builds a classifier over the given rule data. Zero-valued
// rule fields fall back to the built-in defaults.
func NewClassifier(rules Ruleset) *Classifier {
	return &Classifier{
		rules: rules.normalized(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ClassifyFile scores a proposed file mutation.
func (c *Classifier) ClassifyFile(input FileInput) ActionRequest {
	op := strings.ToLower(strings.TrimSpace(input.Operation))
	path := strings.TrimSpace(input.Path)
	newPath := strings.TrimSpace(input.NewPath)
	base := filepath.Base(path)
	isDelete := op == "delete"

	level := LevelSafe
	switch {
	case isDelete && c.isCriticalFile(base):
		level = LevelCritical
	case isDelete && c.isConfigExtension(base):
		level = maxLevel(level, LevelHigh)
	case isDelete:
		level = maxLevel(level, LevelModerate)
	}

	if !isDelete && c.isCriticalFile(base) {
		level = maxLevel(level, LevelHigh)
	}
	if c.isSensitivePath(path) || c.isSensitivePath(newPath) {
		level = maxLevel(level, LevelHigh)
	}
	if !isDelete && len(input.Content) > c.rules.LargeContentChars {
		level = maxLevel(level, LevelModerate)
	}

	affected := []string{path}
	if newPath != "" {
		affected = append(affected, newPath)
	}

	return ActionRequest{
		ID:              c.newID(),
		Category:        fileCategory(op),
		Level:           level,
		Description:     fmt.Sprintf("%s %s", op, path),
		EstimatedImpact: fileImpact(op, base, input.Content),
		AffectedFiles:   affected,
		Reversible:      !isDelete,
		Timestamp:       c.now(),
	}
}

// ClassifyCommand scores a proposed terminal command.
func (c *Classifier) ClassifyCommand(input CommandInput) ActionRequest {
	command := strings.ToLower(strings.TrimSpace(input.Command))

	level := LevelSafe
	destructive := containsAny(command, c.rules.DestructiveCommands)
	switch {
	case destructive:
		level = LevelCritical
	case containsAny(command, c.rules.ElevatedCommands):
		level = LevelHigh
	case containsAny(command, c.rules.DatabaseCommands):
		level = LevelHigh
	case containsAny(command, c.rules.InstallCommands):
		level = LevelModerate
	case containsAny(command, c.rules.NetworkCommands):
		level = LevelModerate
	}

	return ActionRequest{
		ID:              c.newID(),
		Category:        CategoryTerminalCommand,
		Level:           level,
		Description:     fmt.Sprintf("run %s", strings.TrimSpace(input.Command)),
		EstimatedImpact: commandImpact(level),
		AffectedFiles:   []string{workingDirOrDot(input.WorkingDir)},
		Reversible:      !destructive,
		Timestamp:       c.now(),
	}
}

// ClassifyRefactor scores a proposed multi-file refactor by total line delta.
// Refactors are always reversible: backups exist for every touched file.
func (c *Classifier) ClassifyRefactor(input RefactorInput) ActionRequest {
	level := LevelSafe
	switch {
	case input.LinesChanged > c.rules.RefactorHighLines:
		level = LevelHigh
	case input.LinesChanged > c.rules.RefactorModerateLines:
		level = LevelModerate
	}

	files := input.Files
	if len(files) == 0 {
		files = []string{"."}
	}

	return ActionRequest{
		ID:              c.newID(),
		Category:        CategoryLargeRefactor,
		Level:           level,
		Description:     fmt.Sprintf("refactor %d files", len(files)),
		EstimatedImpact: fmt.Sprintf("Will change about %d lines across %d files", input.LinesChanged, len(files)),
		AffectedFiles:   files,
		Reversible:      true,
		Timestamp:       c.now(),
	}
}

func fileCategory(op string) Category {
	switch op {
	case "create":
		return CategoryFileCreate
	case "delete":
		return CategoryFileDelete
	case "rename":
		return CategoryFileRename
	case "move":
		return CategoryFileMove
	default:
		return CategoryFileOverwrite
	}
}

func fileImpact(op, base, content string) string {
	if op == "delete" {
		return fmt.Sprintf("Will permanently delete %s", base)
	}
	if content != "" {
		lines := strings.Count(content, "\n") + 1
		return fmt.Sprintf("Will write %d lines to %s", lines, base)
	}
	return fmt.Sprintf("Will %s %s", op, base)
}

func commandImpact(level Level) string {
	switch level {
	case LevelCritical:
		return "Command contains destructive tokens and may remove data"
	case LevelHigh:
		return "Command runs with elevated or schema-changing effect"
	case LevelModerate:
		return "Command installs packages or fetches from the network"
	default:
		return "Command appears read-only"
	}
}

func (c *Classifier) isCriticalFile(base string) bool {
	for _, name := range c.rules.CriticalFiles {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}

func (c *Classifier) isConfigExtension(base string) bool {
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range c.rules.ConfigExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (c *Classifier) isSensitivePath(path string) bool {
	lower := strings.ToLower(path)
	if containsAny(lower, c.rules.SensitiveSegments) {
		return true
	}
	return containsAny(lower, c.rules.FrameworkConfigs)
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(s, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

func workingDirOrDot(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "."
	}
	return dir
}
