package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette
const (
	colorText   = lipgloss.Color("#FAFAFA")
	colorAccent = lipgloss.Color("#7D56F4")
	colorGreen  = lipgloss.Color("#96CEB4")
	colorGold   = lipgloss.Color("#FFD700")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorAmber  = lipgloss.Color("#FFEAA7")
	colorMuted  = lipgloss.Color("#626262")
	colorBorder = lipgloss.Color("#04B575")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	HeaderStyle = fg(colorText).Background(colorAccent).Bold(true).Padding(0, 1)
	TitleStyle  = fg(colorText).Bold(true)
	PanelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	HandInfoStyle   = fg(colorGreen).Bold(true)
	ActionsStyle    = fg(colorGold).Bold(true)
	PlayerInfoStyle = fg(colorText)

	RedCardStyle   = fg(colorRed).Bold(true)
	BlackCardStyle = fg(colorText).Bold(true)

	SuccessStyle = fg(colorGreen).Bold(true)
	ErrorStyle   = fg(colorRed).Bold(true)
	WarningStyle = fg(colorAmber).Bold(true)
	InfoStyle    = fg(colorMuted)

	promptStyle = fg(colorBorder).Bold(true)
)

// DisableColor renders every style as plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
