package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Minimal color palette
var (
	DimColor     = lipgloss.Color("#6c6c6c")
	TextColor    = lipgloss.Color("#e0e0e0")
	AccentColor  = lipgloss.Color("#7aa2f7")
	ErrorColor   = lipgloss.Color("#f7768e")
	SuccessColor = lipgloss.Color("#9ece6a")
	WarnColor    = lipgloss.Color("#e0af68")
)

// Status line styles
var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(WarnColor)

	AccentStyle = lipgloss.NewStyle().
			Foreground(AccentColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimColor)
)

// Status prefixes
const (
	OKPrefix      = "ok "
	FailPrefix    = "failed "
	PreviewPrefix = "preview "
)
