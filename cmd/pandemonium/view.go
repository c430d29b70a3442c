package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BaSui01/pandemonium/agent/conversation"
	"github.com/BaSui01/pandemonium/llm/observability"
)

// view 负责终端输出；非 TTY 输出时 lipgloss 自动降级为纯文本
type view struct {
	w      io.Writer
	styles styles
}

type styles struct {
	intro   lipgloss.Style
	speaker lipgloss.Style
	broker  lipgloss.Style
	reason  lipgloss.Style
	body    lipgloss.Style
	verdict lipgloss.Style
	rule    lipgloss.Style
	note    lipgloss.Style
	prompt  lipgloss.Style
	title   lipgloss.Style
	key     lipgloss.Style
	detail  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		intro:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		speaker: r.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		broker:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		reason:  r.NewStyle().Faint(true),
		body:    r.NewStyle().Foreground(lipgloss.Color("252")),
		verdict: r.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		rule:    r.NewStyle().Foreground(lipgloss.Color("241")),
		note:    r.NewStyle().Faint(true),
		prompt:  r.NewStyle().Foreground(lipgloss.Color("245")),
		title:   r.NewStyle().Bold(true),
		key:     r.NewStyle().Foreground(lipgloss.Color("159")),
		detail:  r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func newView(w io.Writer) *view {
	return &view{w: w, styles: newStyles(lipgloss.NewRenderer(w))}
}

func (v *view) intro(text string) {
	fmt.Fprintln(v.w, v.styles.intro.Render(text))
	fmt.Fprintln(v.w, "\n"+v.styles.rule.Render(strings.Repeat("=", 50))+"\n")
}

func (v *view) step(step *conversation.Step) {
	if step.Concluded {
		fmt.Fprintln(v.w, v.styles.verdict.Render(step.Text))
		return
	}
	name := v.styles.speaker
	if step.Reason == conversation.ReasonBroker {
		name = v.styles.broker
	}
	header := name.Render(step.Speaker + ":")
	if step.Reason != conversation.ReasonRoundRobin {
		header += " " + v.styles.reason.Render("("+string(step.Reason)+")")
	}
	fmt.Fprintln(v.w, header, v.styles.body.Render(step.Message.Text))
	fmt.Fprintln(v.w, "\n"+v.styles.rule.Render(strings.Repeat("-", 30))+"\n")
}

func (v *view) prompt(text string) {
	fmt.Fprint(v.w, v.styles.prompt.Render(text))
}

func (v *view) note(text string) {
	fmt.Fprintln(v.w, v.styles.note.Render(text))
}

func (v *view) summary(c observability.CostSummary) {
	if c.RequestCount == 0 {
		return
	}
	v.note(fmt.Sprintf("\n%d LLM requests, %d tokens, est. $%.4f", c.RequestCount, c.TotalTokens(), c.TotalCost))
}
