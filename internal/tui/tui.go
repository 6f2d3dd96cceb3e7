package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Program is an alias for tea.Program, exposed so callers don't need to
// import bubbletea directly.
type Program = tea.Program

// NewProgram creates the progress TUI for one run. The caller drives it
// with Send(MsgStage...), Send(MsgLog...), and finally Send(MsgDone...)
// or Send(MsgFailed...).
func NewProgram(title string, opts ...tea.ProgramOption) *Program {
	return tea.NewProgram(NewModel(title), opts...)
}
