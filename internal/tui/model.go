// Package tui renders a live progress view for pipeline runs: the stage
// list with per-stage status, a completion bar, and a tail of recent
// log lines. The pipeline feeds it through Program.Send from its hook
// callbacks, so the run itself stays on its own goroutine.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgeworks/stencilforge/internal/pipeline"
)

const logTail = 6

// Messages sent by the run goroutine.
type (
	// MsgStage reports the pipeline entering a stage.
	MsgStage struct {
		Name     string
		Fraction float64
	}
	// MsgLog appends one log line to the tail.
	MsgLog struct {
		Level string
		Text  string
	}
	// MsgDone ends the program with a summary.
	MsgDone struct {
		Result *pipeline.Result
	}
	// MsgFailed ends the program with an error.
	MsgFailed struct {
		Err error
	}
)

// Model is the bubbletea model for one run.
type Model struct {
	title    string
	spinner  spinner.Model
	bar      progress.Model
	fraction float64
	current  string
	logs     []string
	result   *pipeline.Result
	err      error
	done     bool
	canceled bool
}

func NewModel(title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleTitle
	return Model{
		title:   title,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 60)
	case MsgStage:
		m.current = msg.Name
		m.fraction = msg.Fraction
	case MsgLog:
		line := msg.Text
		if msg.Level == "warn" {
			line = "⚠ " + line
		}
		m.logs = append(m.logs, line)
		if len(m.logs) > logTail {
			m.logs = m.logs[len(m.logs)-logTail:]
		}
	case MsgDone:
		m.result = msg.Result
		m.fraction = 1
		m.done = true
		return m, tea.Quit
	case MsgFailed:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("stencilforge") + " " + m.title + "\n\n")

	active := m.current
	reached := true
	for _, stage := range pipeline.Stages {
		icon, style := iconWaiting, styleStageWaiting
		switch {
		case m.done && m.err == nil:
			icon, style = iconDone, styleStageDone
		case stage == active:
			reached = false
			if m.done {
				icon, style = iconFailed, styleError
			} else {
				icon, style = iconWorking, styleStageActive
			}
		case reached && active != "":
			icon, style = iconDone, styleStageDone
		}
		line := fmt.Sprintf("  %s %s", icon, stage)
		if stage == active && !m.done {
			line += " " + m.spinner.View()
		}
		b.WriteString(style.Render(line) + "\n")
	}

	b.WriteString("\n  " + m.bar.ViewAs(m.fraction) + "\n")

	if len(m.logs) > 0 {
		b.WriteString("\n")
		for _, line := range m.logs {
			b.WriteString(styleLogLine.Render("  "+line) + "\n")
		}
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + styleError.Render(iconFailed+" "+m.err.Error()) + "\n")
	case m.result != nil:
		b.WriteString("\n" + styleSummary.Render(fmt.Sprintf("%s %s (%d triangles, %.1fs)",
			iconDone, m.result.Output, m.result.Triangles, m.result.Duration.Seconds())) + "\n")
	}
	return b.String()
}

// Canceled reports whether the user quit before the run finished.
func (m Model) Canceled() bool { return m.canceled }

// Err returns the failure delivered by MsgFailed, if any.
func (m Model) Err() error { return m.err }
