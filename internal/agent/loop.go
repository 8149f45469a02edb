package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/MEKXH/mason/internal/backup"
	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/executor"
	"github.com/MEKXH/mason/internal/session"
	"github.com/MEKXH/mason/internal/tools"
)

// Loop is the main agent processing loop
type Loop struct {
	model         model.ChatModel
	tools         *tools.Registry
	sessions      *session.Manager
	context       *ContextBuilder
	config        *config.Config
	maxIterations int
	workspacePath string
	now           func() time.Time

	OnToolStart  func(name, args string)
	OnToolFinish func(name, result string, err error)
}

// NewLoop creates a new agent loop
func NewLoop(cfg *config.Config, chatModel model.ChatModel) (*Loop, error) {
	workspacePath, err := cfg.WorkspacePathChecked()
	if err != nil {
		return nil, err
	}

	return &Loop{
		model:         chatModel,
		tools:         tools.NewRegistry(),
		sessions:      session.NewManager(cfg.StatePath()),
		context:       NewContextBuilder(workspacePath, cfg.Safety.Mode),
		config:        cfg,
		maxIterations: cfg.Agents.Defaults.MaxToolIterations,
		workspacePath: workspacePath,
		now:           time.Now,
	}, nil
}

// Tools returns the tool registry.
func (l *Loop) Tools() *tools.Registry {
	return l.tools
}

// Sessions returns the session manager.
func (l *Loop) Sessions() *session.Manager {
	return l.sessions
}

// RegisterDefaultTools registers all built-in tools. Mutating tools share
// the given executor so every change passes the same permission gate.
func (l *Loop) RegisterDefaultTools(x *executor.Executor, backups *backup.Store) error {
	toolFns := []func() (tool.InvokableTool, error){
		func() (tool.InvokableTool, error) { return tools.NewReadFileTool(l.workspacePath) },
		func() (tool.InvokableTool, error) { return tools.NewListDirTool(l.workspacePath) },
		func() (tool.InvokableTool, error) { return tools.NewApplyOperationTool(x) },
		func() (tool.InvokableTool, error) { return tools.NewApplyBatchTool(x) },
		func() (tool.InvokableTool, error) { return tools.NewRunCommandTool(x) },
		func() (tool.InvokableTool, error) { return tools.NewListBackupsTool(backups) },
		func() (tool.InvokableTool, error) { return tools.NewRestoreBackupTool(backups) },
	}

	for _, fn := range toolFns {
		t, err := fn()
		if err != nil {
			return err
		}
		if err := l.tools.Register(t); err != nil {
			return err
		}
	}

	slog.Info("registered tools", "count", len(l.tools.Names()), "tools", l.tools.Names())
	return nil
}

func (l *Loop) bindTools(ctx context.Context) error {
	if l.model == nil {
		return nil
	}
	toolInfos, err := l.tools.Infos(ctx)
	if err != nil {
		return err
	}
	if binder, ok := l.model.(interface {
		BindTools([]*schema.ToolInfo) error
	}); ok {
		return binder.BindTools(toolInfos)
	}
	return nil
}

// Process runs one user message through the model and its tool calls,
// keeping the transcript under the given session key.
func (l *Loop) Process(ctx context.Context, sessionKey, content string) (string, error) {
	if err := l.bindTools(ctx); err != nil {
		return "", err
	}
	if sessionKey == "" {
		sessionKey = "default"
	}

	sess := l.sessions.GetOrCreate(sessionKey)
	messages := l.context.BuildMessages(sess.GetHistory(50), content)

	var finalContent string

	for i := 0; i < l.maxIterations; i++ {
		if l.model == nil {
			finalContent = "No model configured"
			break
		}

		resp, err := l.model.Generate(ctx, messages)
		if err != nil {
			return "", err
		}

		// Always capture the latest content from the LLM response,
		// even when tool calls are present.
		if resp.Content != "" {
			finalContent = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			break
		}

		messages = append(messages, resp)

		// Tool calls run one at a time: each may block on an interactive
		// approval prompt, and two prompts cannot share one terminal.
		for _, tc := range resp.ToolCalls {
			toolStart := l.now()
			slog.Debug("executing tool", "session", sessionKey, "name", tc.Function.Name)

			if l.OnToolStart != nil {
				l.OnToolStart(tc.Function.Name, tc.Function.Arguments)
			}

			result, err := l.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				result = "Error: " + err.Error()
			}

			slog.Info("tool execution finished",
				"session", sessionKey,
				"tool", tc.Function.Name,
				"duration_ms", time.Since(toolStart).Milliseconds(),
				"success", err == nil,
			)

			if l.OnToolFinish != nil {
				l.OnToolFinish(tc.Function.Name, result, err)
			}

			messages = append(messages, &schema.Message{
				Role:       schema.Tool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	if finalContent == "" {
		finalContent = "Processing complete."
	}

	sess.AddMessage("user", content)
	sess.AddMessage("assistant", finalContent)
	if err := l.sessions.Save(sess); err != nil {
		slog.Warn("save session failed", "session", sessionKey, "error", err)
	}

	return finalContent, nil
}

// ProcessDirect processes a message in the default session (for CLI)
func (l *Loop) ProcessDirect(ctx context.Context, content string) (string, error) {
	return l.Process(ctx, "default", content)
}
