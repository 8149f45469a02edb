// Package prompt provides interactive approval surfaces. The terminal
// prompter renders a four-choice dialog with bubbletea; the telegram
// prompter forwards the same dialog to a remote chat.
package prompt

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MEKXH/mason/internal/permission"
	"github.com/MEKXH/mason/internal/risk"
)

// TerminalPrompter asks for approval on the controlling terminal.
type TerminalPrompter struct{}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// Ask blocks until the user picks a choice or dismisses the dialog.
// Dismissal (Esc, Ctrl+C, context cancel) returns ChoiceNone, not an error.
func (p *TerminalPrompter) Ask(ctx context.Context, req risk.ActionRequest) (permission.Choice, error) {
	program := tea.NewProgram(newApprovalModel(req), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return permission.ChoiceNone, nil
		}
		return permission.ChoiceNone, fmt.Errorf("approval prompt: %w", err)
	}
	m, ok := final.(approvalModel)
	if !ok {
		return permission.ChoiceNone, nil
	}
	return m.choice, nil
}

type option struct {
	label  string
	detail string
	choice permission.Choice
}

type approvalModel struct {
	req     req
	options []option
	cursor  int
	choice  permission.Choice
	done    bool
}

// req carries only what the view needs, pre-formatted.
type req struct {
	icon       string
	level      risk.Level
	category   string
	desc       string
	impact     string
	files      []string
	reversible bool
}

func newApprovalModel(r risk.ActionRequest) approvalModel {
	return approvalModel{
		req: req{
			icon:       r.Level.Icon(),
			level:      r.Level,
			category:   string(r.Category),
			desc:       r.Description,
			impact:     r.EstimatedImpact,
			files:      r.AffectedFiles,
			reversible: r.Reversible,
		},
		options: []option{
			{"Allow once", "approve just this action", permission.ChoiceAllowOnce},
			{"Always allow", "remember for " + string(r.Category), permission.ChoiceAlwaysAllow},
			{"Always ask", "keep prompting for " + string(r.Category), permission.ChoiceAlwaysAsk},
			{"Deny", "block this action", permission.ChoiceDeny},
		},
	}
}

func (m approvalModel) Init() tea.Cmd { return nil }

func (m approvalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		m.choice = m.options[m.cursor].choice
		m.done = true
		return m, tea.Quit
	case "1", "2", "3", "4":
		m.cursor = int(key.String()[0] - '1')
		m.choice = m.options[m.cursor].choice
		m.done = true
		return m, tea.Quit
	case "esc", "ctrl+c", "q":
		m.choice = permission.ChoiceNone
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

var (
	promptTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Padding(0, 1)

	promptDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	promptCursorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#8E4EC6")) // Purple

	promptFileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			PaddingLeft(4)
)

func levelColor(level risk.Level) lipgloss.Color {
	switch level {
	case risk.LevelSafe:
		return lipgloss.Color("#2E8B57") // SeaGreen
	case risk.LevelModerate:
		return lipgloss.Color("#DAA520") // GoldenRod
	case risk.LevelHigh:
		return lipgloss.Color("#FF8C00") // DarkOrange
	case risk.LevelCritical:
		return lipgloss.Color("#DC143C") // Crimson
	default:
		return lipgloss.Color("241")
	}
}

func (m approvalModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("%s %s risk: %s", m.req.icon, strings.ToUpper(string(m.req.level)), m.req.category)
	b.WriteString(promptTitleStyle.Background(levelColor(m.req.level)).Render(title))
	b.WriteString("\n\n")

	b.WriteString("  " + m.req.desc + "\n")
	if m.req.impact != "" {
		b.WriteString(promptDimStyle.Render("  Impact: "+m.req.impact) + "\n")
	}
	if !m.req.reversible {
		b.WriteString(promptDimStyle.Render("  This action cannot be undone") + "\n")
	}

	if len(m.req.files) > 0 {
		b.WriteString(promptDimStyle.Render(fmt.Sprintf("  Files (%d):", len(m.req.files))) + "\n")
		shown := m.req.files
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, f := range shown {
			b.WriteString(promptFileStyle.Render(f) + "\n")
		}
		if rest := len(m.req.files) - len(shown); rest > 0 {
			b.WriteString(promptFileStyle.Render(fmt.Sprintf("... and %d more", rest)) + "\n")
		}
	}
	b.WriteString("\n")

	for i, opt := range m.options {
		line := fmt.Sprintf("%d. %s", i+1, opt.label)
		if i == m.cursor {
			b.WriteString(promptCursorStyle.Render("> "+line) + promptDimStyle.Render("  "+opt.detail) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + promptDimStyle.Render("  ↑/↓ Move • Enter Select • 1-4 Pick • Esc Cancel") + "\n")
	return b.String()
}
