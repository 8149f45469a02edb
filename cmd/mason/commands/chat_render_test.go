package commands

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
)

type countingRenderer struct {
	calls int
}

func (c *countingRenderer) Render(s string) (string, error) {
	c.calls++
	return "md(" + s + ")", nil
}

func TestSplitThinkBlock(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		think string
		body  string
		ok    bool
	}{
		{
			name:  "reasoning before answer",
			reply: "<think>weigh the options</think>Use a map here.",
			think: "weigh the options",
			body:  "Use a map here.",
			ok:    true,
		},
		{
			name:  "plain reply",
			reply: "Nothing to deliberate about.",
			body:  "Nothing to deliberate about.",
		},
		{
			name:  "empty tag",
			reply: "<think></think>still an answer",
			body:  "still an answer",
			ok:    true,
		},
		{
			name:  "multiline reasoning is trimmed",
			reply: "<think>\nstep one\nstep two\n</think>done",
			think: "step one\nstep two",
			body:  "done",
			ok:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			think, body, ok := splitThinkBlock(tc.reply)
			if ok != tc.ok {
				t.Fatalf("ok = %t, want %t", ok, tc.ok)
			}
			if think != tc.think {
				t.Fatalf("think = %q, want %q", think, tc.think)
			}
			if body != tc.body {
				t.Fatalf("body = %q, want %q", body, tc.body)
			}
		})
	}
}

func TestRenderResponseParts_RendersBothHalves(t *testing.T) {
	r := &countingRenderer{}
	think, body, ok := renderResponseParts("<think>plan it</think># Answer", r)
	if !ok {
		t.Fatal("expected a think block")
	}
	if r.calls != 2 {
		t.Fatalf("renderer called %d times, want 2", r.calls)
	}
	if think != "md(plan it)" {
		t.Fatalf("think = %q", think)
	}
	if body != "md(# Answer)" {
		t.Fatalf("body = %q", body)
	}
}

func TestRenderResponseParts_SkipsRenderWithoutThink(t *testing.T) {
	r := &countingRenderer{}
	think, body, ok := renderResponseParts("# Answer", r)
	if ok {
		t.Fatal("unexpected think block")
	}
	if r.calls != 1 {
		t.Fatalf("renderer called %d times, want 1", r.calls)
	}
	if think != "" {
		t.Fatalf("think = %q, want empty", think)
	}
	if body != "md(# Answer)" {
		t.Fatalf("body = %q", body)
	}
}

func TestChatView_ShowsKeyHints(t *testing.T) {
	m := model{
		textarea: textarea.New(),
		viewport: viewport.New(10, 10),
		spinner:  spinner.New(),
	}

	view := m.View()
	for _, hint := range []string{"Enter", "Send", "/new", "Reset", "Esc", "Quit"} {
		if !strings.Contains(view, hint) {
			t.Fatalf("view is missing %q:\n%s", hint, view)
		}
	}
}
