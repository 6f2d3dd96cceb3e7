package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgeworks/stencilforge/internal/pipeline"
)

func feed(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func stageLine(t *testing.T, view, stage string) string {
	t.Helper()
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, stage) {
			return line
		}
	}
	t.Fatalf("no line for stage %q in view:\n%s", stage, view)
	return ""
}

func TestViewMarksFailedStage(t *testing.T) {
	t.Parallel()
	m := feed(t, NewModel("board"),
		MsgStage{Name: pipeline.Stages[0], Fraction: 0},
		MsgStage{Name: pipeline.Stages[2], Fraction: 0.3},
		MsgFailed{Err: errors.New("no paste layer found")},
	)
	view := m.View()

	if line := stageLine(t, view, pipeline.Stages[2]); !strings.Contains(line, iconFailed) {
		t.Errorf("failed stage line %q lacks %q", line, iconFailed)
	}
	if line := stageLine(t, view, pipeline.Stages[1]); !strings.Contains(line, iconDone) {
		t.Errorf("completed stage line %q lacks %q", line, iconDone)
	}
	if line := stageLine(t, view, pipeline.Stages[3]); !strings.Contains(line, iconWaiting) {
		t.Errorf("unreached stage line %q lacks %q", line, iconWaiting)
	}
	if !strings.Contains(view, "no paste layer found") {
		t.Errorf("view does not show the failure:\n%s", view)
	}
	if m.Err() == nil {
		t.Errorf("Err() = nil after MsgFailed")
	}
}

func TestViewMarksAllStagesDoneOnSuccess(t *testing.T) {
	t.Parallel()
	m := feed(t, NewModel("board"),
		MsgStage{Name: pipeline.Stages[len(pipeline.Stages)-1], Fraction: 0.95},
		MsgDone{Result: &pipeline.Result{Output: "board.stl", Triangles: 42, Duration: time.Second}},
	)
	view := m.View()

	for _, stage := range pipeline.Stages {
		if line := stageLine(t, view, stage); !strings.Contains(line, iconDone) {
			t.Errorf("stage line %q lacks %q", line, iconDone)
		}
	}
	if !strings.Contains(view, "board.stl") || strings.Contains(view, iconFailed) {
		t.Errorf("summary wrong:\n%s", view)
	}
}
