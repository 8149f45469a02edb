package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/MEKXH/mason/internal/agent"
	"github.com/MEKXH/mason/internal/config"
	"github.com/MEKXH/mason/internal/provider"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with Mason",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	chatModel, err := provider.NewChatModel(ctx, cfg)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Running without LLM (tools only mode)")
		chatModel = nil
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	loop, err := agent.NewLoop(cfg, chatModel)
	if err != nil {
		return err
	}
	if err := loop.RegisterDefaultTools(p.executor, p.backups); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	if len(args) > 0 {
		message := strings.Join(args, " ")
		resp, err := loop.ProcessDirect(ctx, message)
		if err != nil {
			return err
		}
		fmt.Println(resp)
		return nil
	}

	prog := tea.NewProgram(newChatUI(loop, p.workspace), tea.WithAltScreen())
	_, err = prog.Run()
	return err
}

// markdownRenderer is the subset of glamour used to render responses.
type markdownRenderer interface {
	Render(string) (string, error)
}

var thinkTagRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// splitThinkBlock pulls the reasoning section some models emit out of a
// reply. The body is the reply with every think tag stripped; both halves
// come back trimmed.
func splitThinkBlock(reply string) (think, body string, ok bool) {
	m := thinkTagRe.FindStringSubmatch(reply)
	if m == nil {
		return "", reply, false
	}
	body = strings.TrimSpace(thinkTagRe.ReplaceAllString(reply, ""))
	return strings.TrimSpace(m[1]), body, true
}

// renderResponseParts splits a response into its think block and main body
// and renders each as markdown. Render failures fall back to the raw text.
func renderResponseParts(content string, r markdownRenderer) (string, string, bool) {
	thinkRaw, mainRaw, hasThink := splitThinkBlock(content)

	renderPart := func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimSpace(out)
	}

	var think string
	if hasThink {
		think = renderPart(thinkRaw)
	}
	return think, renderPart(mainRaw), hasThink
}

var (
	chatTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#8E4EC6")). // Purple
			Padding(0, 1)

	chatUserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8E4EC6"))

	chatThinkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	chatErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DC143C")) // Crimson

	chatHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

type (
	chatResponseMsg string
	chatErrMsg      struct{ err error }
)

const chatSessionKey = "default"

// model is the bubbletea model of the interactive chat.
type model struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	thinking bool

	loop       *agent.Loop
	renderer   markdownRenderer
	workspace  string
	transcript []string
	err        error
	width      int
	height     int
	ready      bool
}

func newChatUI(loop *agent.Loop, workspace string) model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 4096
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#8E4EC6"))

	vp := viewport.New(80, 20)

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return model{
		textarea:  ta,
		viewport:  vp,
		spinner:   sp,
		loop:      loop,
		renderer:  renderer,
		workspace: workspace,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.thinking {
				return m.handleSubmit()
			}
			return m, nil
		}
		if !m.thinking {
			m.textarea, taCmd = m.textarea.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		inputHeight := m.textarea.Height() + 1
		footerHeight := 2

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-inputHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - inputHeight - footerHeight
		}
		m.textarea.SetWidth(msg.Width - 2)

		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-4),
		); err == nil {
			m.renderer = r
		}

	case spinner.TickMsg:
		if m.thinking {
			var spCmd tea.Cmd
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case chatResponseMsg:
		m.thinking = false
		think, body, hasThink := renderResponseParts(string(msg), m.renderer)
		if hasThink && think != "" {
			m.transcript = append(m.transcript, chatThinkStyle.Render(think))
		}
		m.transcript = append(m.transcript, body, "")
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		m.viewport.GotoBottom()

	case chatErrMsg:
		m.thinking = false
		m.err = msg.err
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(taCmd, vpCmd)
}

func (m model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	if input == "/new" {
		if m.loop != nil {
			_ = m.loop.Sessions().Reset(chatSessionKey)
		}
		m.transcript = nil
		m.err = nil
		m.textarea.Reset()
		m.viewport.SetContent("")
		return m, nil
	}

	m.transcript = append(m.transcript, chatUserStyle.Render("You")+" "+input, "")
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
	m.textarea.Reset()
	m.err = nil
	m.thinking = true

	return m, tea.Batch(m.spinner.Tick, m.process(input))
}

func (m model) process(input string) tea.Cmd {
	loop := m.loop
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		resp, err := loop.Process(ctx, chatSessionKey, input)
		if err != nil {
			return chatErrMsg{err: err}
		}
		return chatResponseMsg(resp)
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(chatTitleStyle.Render("Mason"))
	if m.workspace != "" {
		b.WriteString(" " + chatHelpStyle.Render(m.workspace))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.thinking {
		b.WriteString(m.spinner.View() + " Thinking...\n")
	}
	if m.err != nil {
		b.WriteString(chatErrStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(chatHelpStyle.Render("Enter Send • /new Reset • Esc Quit"))

	return b.String()
}
