// Package ui provides the Bubble Tea dashboard for the bridge demo.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Runner performs one computation against the bridge.
type Runner func(ctx context.Context, kind Kind) ResultMsg

// HealthFunc checks the bridge health endpoint.
type HealthFunc func(ctx context.Context) HealthMsg

const defaultTimeout = 60 * time.Second

type panel struct {
	running bool
	runs    int
	result  *ResultMsg
}

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	run         Runner
	checkHealth HealthFunc
	target      string
	timeout     time.Duration

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	panels map[Kind]*panel
	health *HealthMsg

	width    int
	quitting bool
}

// New creates a dashboard that runs every computation on start.
func New(target string, run Runner, checkHealth HealthFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusRunning

	panels := make(map[Kind]*panel, len(Kinds))
	for _, k := range Kinds {
		panels[k] = &panel{running: true}
	}

	return Model{
		run:         run,
		checkHealth: checkHealth,
		target:      target,
		timeout:     defaultTimeout,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     s,
		panels:      panels,
	}
}

// Init starts the spinner, the health check and the initial computations.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.healthCmd()}
	for _, k := range Kinds {
		cmds = append(cmds, m.runCmd(k))
	}
	return tea.Batch(cmds...)
}

func (m Model) runCmd(kind Kind) tea.Cmd {
	run, timeout := m.run, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return run(ctx, kind)
	}
}

func (m Model) healthCmd() tea.Cmd {
	if m.checkHealth == nil {
		return nil
	}
	checkHealth, timeout := m.checkHealth, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return checkHealth(ctx)
	}
}

// start marks kind as running and returns the command that runs it. A
// computation already in flight is not started twice.
func (m Model) start(kind Kind) tea.Cmd {
	p := m.panels[kind]
	if p.running {
		return nil
	}
	p.running = true
	return m.runCmd(kind)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.All):
			var cmds []tea.Cmd
			for _, k := range Kinds {
				cmds = append(cmds, m.start(k))
			}
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Plan):
			return m, m.start(KindPlan)
		case key.Matches(msg, m.keys.Risk):
			return m, m.start(KindRisk)
		case key.Matches(msg, m.keys.Curve):
			return m, m.start(KindCurve)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ResultMsg:
		if p, ok := m.panels[msg.Kind]; ok {
			p.running = false
			p.runs++
			p.result = &msg
		}

	case HealthMsg:
		m.health = &msg
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Evalys Arcium Bridge"))
	b.WriteString("  ")
	b.WriteString(m.renderHealth())
	b.WriteString("\n\n")

	views := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		views = append(views, m.renderPanel(k))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, views...))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderHealth() string {
	target := MutedValue.Render(m.target)
	switch {
	case m.health == nil:
		return m.spinner.View() + " " + target
	case m.health.Err != nil:
		return StatusFailed.Render("● unreachable") + " " + target
	default:
		return StatusOK.Render("● "+m.health.Service) + " " + target
	}
}

func (m Model) renderPanel(kind Kind) string {
	p := m.panels[kind]

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(kind.String()))
	b.WriteString("\n")

	switch {
	case p.running:
		b.WriteString(m.spinner.View() + StatusRunning.Render(" computing in MXE"))
	case p.result == nil:
		b.WriteString(MutedValue.Render("idle"))
	case p.result.Err != nil:
		b.WriteString(StatusFailed.Render("failed"))
		b.WriteString("\n")
		b.WriteString(MutedValue.Render(p.result.Err.Error()))
	default:
		b.WriteString(StatusOK.Render("verified"))
		b.WriteString(MutedValue.Render(fmt.Sprintf("  %s  run %d", p.result.Latency.Round(time.Millisecond), p.runs)))
		for _, f := range p.result.Fields {
			b.WriteString("\n")
			b.WriteString(LabelStyle.Render(f.Label))
			b.WriteString(f.Value)
		}
	}

	return PanelStyle.Render(b.String())
}
