package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/loadwatch/internal/ui"
)

// Card dimensions
const (
	cardWidth      = 40
	cardGap        = 1
	sparkWidth     = 16
	memoryBarWidth = 14
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Background(ui.ColorDarkSurface).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorGlassBorder).
			Padding(0, 1).
			Width(cardWidth)

	SelectedCardStyle = CardStyle.
				BorderForeground(ui.ColorNeonPink)

	HostNameStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ui.ColorSecondary).
			Width(6)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorNeonPurple).
			Padding(1, 2)
)

// statusSymbol renders the glyph for a host status.
func statusSymbol(s HostStatus) string {
	switch s {
	case StatusFresh:
		return ui.SuccessStyle().Render(ui.SymbolSuccess)
	case StatusStale:
		return ui.WarningStyle().Render(ui.SymbolWarning)
	default:
		return ui.MutedStyle().Render(ui.SymbolPending)
	}
}
