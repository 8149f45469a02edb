package permission

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/risk"
)

const (
	reasonAutoApproved = "Auto-approved by safety mode"
	reasonRemembered   = "Previously allowed by user"
	reasonDenied       = "Previously denied by user"
	reasonCancelled    = "User cancelled"
)

// Prompter presents one action to the user and returns one of the four
// choices, or ChoiceNone on dismissal. The call suspends until the user
// responds; context cancellation counts as dismissal.
type Prompter interface {
	Ask(ctx context.Context, req risk.ActionRequest) (Choice, error)
}

// Engine resolves action requests to decisions. Resolution is a fixed
// three-gate sequence: safety-mode auto-approve, remembered decision,
// interactive prompt. Every request receives exactly one decision.
type Engine struct {
	mode     Mode
	store    *Store
	override *OverrideManager
	prompter Prompter
	now      func() time.Time
}

// NewEngine builds an engine. The prompter may be nil, in which case any
// request reaching the interactive gate is denied.
func NewEngine(mode Mode, store *Store, prompter Prompter) *Engine {
	return &Engine{
		mode:     normalizeMode(mode),
		store:    store,
		prompter: prompter,
		now:      time.Now,
	}
}

// SetOverrideManager attaches the runtime safety-mode override.
func (e *Engine) SetOverrideManager(m *OverrideManager) {
	e.override = m
}

// EffectiveMode returns the mode the next resolution will use, honoring an
// active runtime override.
func (e *Engine) EffectiveMode() Mode {
	if e.override != nil {
		st, err := e.override.Load()
		if err != nil {
			slog.Warn("load policy override failed", "error", err)
		} else if st.Active(e.now().UTC()) {
			return normalizeMode(st.Mode)
		}
	}
	return e.mode
}

// Resolve runs the decision state machine for one request. It never fails;
// any internal store or prompt error degrades toward deny or ask.
func (e *Engine) Resolve(ctx context.Context, req risk.ActionRequest) Decision {
	now := e.now().UTC()

	if autoApproves(e.EffectiveMode(), req) {
		return Decision{
			ActionID:  req.ID,
			Kind:      DecisionAllowOnce,
			Timestamp: now,
			Reason:    reasonAutoApproved,
		}
	}

	if entry, ok, err := e.store.Get(req.Category); err != nil {
		slog.Warn("permission memory lookup failed", "category", req.Category, "error", err)
	} else if ok {
		switch entry.Decision {
		case DecisionAlwaysAllow:
			return Decision{
				ActionID:  req.ID,
				Kind:      DecisionAlwaysAllow,
				Timestamp: now,
				Reason:    reasonRemembered,
			}
		case DecisionDeny:
			return Decision{
				ActionID:  req.ID,
				Kind:      DecisionDeny,
				Timestamp: now,
				Reason:    reasonDenied,
			}
		}
	}

	return e.resolveInteractive(ctx, req)
}

func (e *Engine) resolveInteractive(ctx context.Context, req risk.ActionRequest) Decision {
	cancelled := Decision{
		ActionID:  req.ID,
		Kind:      DecisionDeny,
		Timestamp: e.now().UTC(),
		Reason:    reasonCancelled,
	}

	if e.prompter == nil {
		return cancelled
	}

	choice, err := e.prompter.Ask(ctx, req)
	if err != nil {
		slog.Warn("permission prompt failed", "category", req.Category, "error", err)
		return cancelled
	}

	switch choice {
	case ChoiceAllowOnce:
		return Decision{ActionID: req.ID, Kind: DecisionAllowOnce, Timestamp: e.now().UTC()}
	case ChoiceAlwaysAsk:
		return Decision{ActionID: req.ID, Kind: DecisionAlwaysAsk, Timestamp: e.now().UTC()}
	case ChoiceAlwaysAllow:
		if err := e.store.Set(req.Category, DecisionAlwaysAllow); err != nil {
			slog.Warn("persist always-allow failed", "category", req.Category, "error", err)
		}
		return Decision{ActionID: req.ID, Kind: DecisionAlwaysAllow, Timestamp: e.now().UTC()}
	case ChoiceDeny:
		if err := e.store.Set(req.Category, DecisionDeny); err != nil {
			slog.Warn("persist deny failed", "category", req.Category, "error", err)
		}
		return Decision{ActionID: req.ID, Kind: DecisionDeny, Timestamp: e.now().UTC(), Reason: "Denied by user"}
	default:
		return cancelled
	}
}

// Entries lists remembered decisions without touching usage stats.
func (e *Engine) Entries() (map[risk.Category]MemoryEntry, error) {
	return e.store.GetAll()
}

// Stats summarizes remembered decisions.
func (e *Engine) Stats() (Stats, error) {
	return e.store.GetStats()
}

// Forget removes one category's remembered decision.
func (e *Engine) Forget(category risk.Category) error {
	return e.store.Remove(category)
}

// Reset clears every remembered decision.
func (e *Engine) Reset() error {
	return e.store.Clear()
}

// autoApproves is the safety-mode matrix: strict auto-approves only safe,
// moderate adds reversible moderate actions, relaxed everything below
// critical.
func autoApproves(mode Mode, req risk.ActionRequest) bool {
	switch mode {
	case ModeStrict:
		return req.Level == risk.LevelSafe
	case ModeModerate:
		if req.Level == risk.LevelSafe {
			return true
		}
		return req.Level == risk.LevelModerate && req.Reversible
	case ModeRelaxed:
		return req.Level.Rank() >= 0 && !req.Level.AtLeast(risk.LevelCritical)
	default:
		return false
	}
}

func normalizeMode(mode Mode) Mode {
	switch strings.ToLower(strings.TrimSpace(string(mode))) {
	case string(ModeModerate):
		return ModeModerate
	case string(ModeRelaxed):
		return ModeRelaxed
	default:
		return ModeStrict
	}
}
