package commands

import (
	"fmt"
	"time"

	"github.com/MEKXH/mason/internal/audit"
	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/executor"
	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/prompt"
	"github.com/MEKXH/mason/internal/risk"
)

// pipeline bundles the pieces every mutating command needs.
type pipeline struct {
	cfg       *config.Config
	workspace string
	engine    *permission.Engine
	backups   *backup.Store
	executor  *executor.Executor
}

// buildPipeline wires classifier, permission engine, backup store, audit
// writer and executor from the loaded config.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	workspace, err := cfg.WorkspacePathChecked()
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}

	prompter, err := buildPrompter(cfg)
	if err != nil {
		return nil, err
	}

	stateDir := cfg.StatePath()
	engine := permission.NewEngine(permission.Mode(cfg.Safety.Mode), permission.NewStore(stateDir), prompter)
	engine.SetOverrideManager(permission.NewOverrideManager(stateDir))

	backups := backup.NewStore(stateDir)

	boundary := ""
	if cfg.Tools.Exec.RestrictToWorkspace {
		boundary = workspace
	}

	x := executor.New(
		risk.NewClassifier(cfg.Risk),
		engine,
		backups,
		audit.NewWriter(stateDir),
		boundary,
	)
	if cfg.Tools.Exec.Timeout > 0 {
		x.SetCommandTimeout(time.Duration(cfg.Tools.Exec.Timeout) * time.Second)
	}

	return &pipeline{
		cfg:       cfg,
		workspace: workspace,
		engine:    engine,
		backups:   backups,
		executor:  x,
	}, nil
}

func buildPrompter(cfg *config.Config) (permission.Prompter, error) {
	switch cfg.Prompt.Channel {
	case "telegram":
		p, err := prompt.NewTelegramPrompter(
			cfg.Prompt.Telegram.Token,
			cfg.Prompt.Telegram.ChatID,
			cfg.Prompt.Telegram.AllowFrom,
		)
		if err != nil {
			return nil, err
		}
		if cfg.Prompt.Telegram.TimeoutSeconds > 0 {
			p.SetTimeout(time.Duration(cfg.Prompt.Telegram.TimeoutSeconds) * time.Second)
		}
		return p, nil
	default:
		return prompt.NewTerminalPrompter(), nil
	}
}
