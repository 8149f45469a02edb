package permission

import (
	"time"

	"github.com/MEKXH/mason/internal/risk"
)

// DecisionKind is the outcome of resolving an action request.
type DecisionKind string

const (
	DecisionAllowOnce   DecisionKind = "allow-once"
	DecisionAlwaysAllow DecisionKind = "always-allow"
	DecisionAlwaysAsk   DecisionKind = "always-ask"
	DecisionDeny        DecisionKind = "deny"
)

// Allows reports whether the decision permits the mutation to proceed.
func (k DecisionKind) Allows() bool {
	return k == DecisionAllowOnce || k == DecisionAlwaysAllow || k == DecisionAlwaysAsk
}

// Decision is the resolution of one ActionRequest. Created once, returned
// to the caller, never persisted as-is.
type Decision struct {
	ActionID  string       `json:"action_id"`
	Kind      DecisionKind `json:"decision"`
	Timestamp time.Time    `json:"timestamp"`
	Reason    string       `json:"reason,omitempty"`
}

// MemoryEntry is a durable per-category remembered decision. Only
// always-allow and deny are ever persisted.
type MemoryEntry struct {
	Category  risk.Category `json:"category"`
	Decision  DecisionKind  `json:"decision"`
	CreatedAt time.Time     `json:"created_at"`
	LastUsed  time.Time     `json:"last_used"`
	UseCount  int           `json:"use_count"`
}

// Choice is one of the four answers of the interactive prompt. ChoiceNone
// models dismissal.
type Choice string

const (
	ChoiceAllowOnce   Choice = "allow-once"
	ChoiceAlwaysAllow Choice = "always-allow"
	ChoiceAlwaysAsk   Choice = "always-ask"
	ChoiceDeny        Choice = "deny"
	ChoiceNone        Choice = ""
)

// Mode is the global safety posture controlling auto-approval.
type Mode string

const (
	ModeStrict   Mode = "strict"
	ModeModerate Mode = "moderate"
	ModeRelaxed  Mode = "relaxed"
)

// Stats summarizes the remembered-decision table for display.
type Stats struct {
	Total       int             `json:"total"`
	AlwaysAllow int             `json:"always_allow"`
	Deny        int             `json:"deny"`
	Categories  []risk.Category `json:"categories"`
}
