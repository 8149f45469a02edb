package risk

import "time"

// Category is the coarse action bucket used as the permission-memory key.
// Decisions are remembered per category, not per specific file or command.
type Category string

const (
	CategoryFileCreate      Category = "file-create"
	CategoryFileOverwrite   Category = "file-overwrite"
	CategoryFileDelete      Category = "file-delete"
	CategoryFileRename      Category = "file-rename"
	CategoryFileMove        Category = "file-move"
	CategoryTerminalCommand Category = "terminal-command"
	CategoryLargeRefactor   Category = "large-refactor"
)

// Level is the ordered severity of a proposed action.
type Level string

const (
	LevelSafe     Level = "safe"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var levelRank = map[Level]int{
	LevelSafe:     0,
	LevelModerate: 1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// Rank returns the ordering position of the level. Unknown levels rank
// below safe so a corrupted value never auto-approves anything above it.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether l is at or above other in severity.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// Icon returns the marker shown next to the level in permission prompts.
func (l Level) Icon() string {
	switch l {
	case LevelCritical:
		return "🚨"
	case LevelHigh:
		return "🔶"
	case LevelModerate:
		return "⚠️"
	default:
		return "✅"
	}
}

func maxLevel(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ActionRequest is a classified mutation awaiting permission resolution.
// It is created once by the classifier and never mutated afterwards.
type ActionRequest struct {
	ID              string
	Category        Category
	Level           Level
	Description     string
	EstimatedImpact string
	AffectedFiles   []string
	Reversible      bool
	Timestamp       time.Time
}

// FileInput describes a proposed file mutation for classification.
type FileInput struct {
	Operation string // create|modify|delete|rename|move
	Path      string
	NewPath   string
	Content   string
}

// CommandInput describes a proposed terminal command for classification.
type CommandInput struct {
	Command    string
	WorkingDir string
}

// RefactorInput describes a proposed multi-file refactor for classification.
type RefactorInput struct {
	Files        []string
	LinesChanged int
}
