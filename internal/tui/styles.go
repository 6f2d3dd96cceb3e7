package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan — primary accent
	colorSuccess = lipgloss.Color("#00E676") // Green — completed
	colorDanger  = lipgloss.Color("#FF5252") // Red — errors/failures
	colorMuted   = lipgloss.Color("#636363") // Gray — de-emphasized
	colorWhite   = lipgloss.Color("#EEEEEE") // Off-white — primary text
)

// Status icons for stage states.
const (
	iconDone    = "✓"
	iconFailed  = "✗"
	iconWorking = "◎"
	iconWaiting = "·"
)

var (
	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleStageDone = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleStageActive = lipgloss.NewStyle().
				Foreground(colorWhite).
				Bold(true)

	styleStageWaiting = lipgloss.NewStyle().
				Foreground(colorMuted)

	styleError = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleLogLine = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleSummary = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)
)
