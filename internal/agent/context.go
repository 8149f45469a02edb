package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/MEKXH/mason/internal/session"
)

// ContextBuilder builds LLM context
type ContextBuilder struct {
	workspacePath string
	safetyMode    string
}

// NewContextBuilder creates a context builder
func NewContextBuilder(workspacePath, safetyMode string) *ContextBuilder {
	return &ContextBuilder{workspacePath: workspacePath, safetyMode: safetyMode}
}

// BuildSystemPrompt assembles the system prompt
func (c *ContextBuilder) BuildSystemPrompt() string {
	var parts []string

	parts = append(parts, c.coreIdentity())

	bootstrapFiles := []string{"MASON.md", "AGENTS.md", "CONVENTIONS.md"}
	for _, name := range bootstrapFiles {
		if content := c.readWorkspaceFile(name); content != "" {
			parts = append(parts, "## "+strings.TrimSuffix(name, ".md")+"\n"+content)
		}
	}

	return strings.Join(parts, "\n\n")
}

func (c *ContextBuilder) coreIdentity() string {
	return fmt.Sprintf(`You are Mason, an AI coding assistant working in %s.
Every file mutation and shell command you request is risk-classified and may
require the user's approval before it runs. The safety mode is %q. A denied
tool call is an answer from the user, not a failure: respect it and adjust
your plan instead of retrying the same action.
Use apply_operation for file changes, apply_batch for multi-file changes,
and run_command for shell commands. Prefer diffs over whole-file rewrites
when modifying existing files.`, c.workspacePath, c.safetyMode)
}

func (c *ContextBuilder) readWorkspaceFile(name string) string {
	path := filepath.Join(c.workspacePath, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// BuildMessages constructs the full message list
func (c *ContextBuilder) BuildMessages(history []*session.Message, current string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)

	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: c.BuildSystemPrompt(),
	})

	for _, h := range history {
		role := schema.User
		if h.Role == "assistant" {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{
			Role:    role,
			Content: h.Content,
		})
	}

	messages = append(messages, &schema.Message{
		Role:    schema.User,
		Content: strings.TrimSpace(current),
	})

	return messages
}
