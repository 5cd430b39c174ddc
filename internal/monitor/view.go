package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/ui"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderHostCards())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title bar with summary stats.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ui.ColorNeonPink).
		Bold(true).
		Render("loadwatch monitor")

	updated := "loading"
	if m.loaded {
		updated = "updated " + ui.FormatAge(m.opts.Now().Sub(m.updated))
	}
	stats := lipgloss.NewStyle().
		Foreground(ui.ColorSecondary).
		Render(fmt.Sprintf(" | %d hosts | %d fresh | sort %s | %s",
			len(m.hosts), m.FreshCount(), m.sortOrder, updated))

	header := HeaderStyle.Render(title + stats)
	if m.lastErr != nil {
		header += "\n" + ui.ErrorStyle().Render(ui.SymbolFail+" "+m.lastErr.Error())
	}
	return header
}

// renderHostCards renders the grid of host cards.
func (m Model) renderHostCards() string {
	if !m.loaded {
		return ui.MutedStyle().Render("Reading samples...")
	}
	if len(m.hosts) == 0 {
		return ui.MutedStyle().Render("No hosts registered. Add one with 'loadwatch host add'.")
	}

	cards := make([]string, 0, len(m.hosts))
	for i, h := range m.hosts {
		cards = append(cards, m.renderCard(h, i == m.selected))
	}
	return m.layoutCards(cards)
}

// renderCard renders one host: status, address, load and memory.
func (m Model) renderCard(h HostView, selected bool) string {
	style := CardStyle
	if selected {
		style = SelectedCardStyle
	}

	lines := []string{
		statusSymbol(m.Status(h)) + " " + HostNameStyle.Render(h.Host.Name),
		ui.MutedStyle().Render(fmt.Sprintf("%s@%s:%d", h.Host.Username, h.Host.Address, h.Host.Port)),
	}

	if h.Latest == nil {
		lines = append(lines, "", ui.MutedStyle().Render("no samples yet"))
		return style.Render(strings.Join(lines, "\n"))
	}

	lines = append(lines, "",
		LabelStyle.Render("load")+ui.RenderLoadSparkline(h.Load, sparkWidth)+" "+formatLoad(h.Latest),
		LabelStyle.Render("mem")+renderMemory(h.Latest),
		"",
		ui.MutedStyle().Render(fmt.Sprintf("%s, %d samples",
			ui.FormatAge(m.opts.Now().Sub(h.Latest.Timestamp)), h.Samples)),
	)
	return style.Render(strings.Join(lines, "\n"))
}

// layoutCards arranges cards in rows based on terminal width.
func (m Model) layoutCards(cards []string) string {
	perRow := 1
	if m.width > 0 {
		perRow = max(1, m.width/(cardWidth+2+cardGap))
	}

	rows := make([]string, 0, len(cards)/perRow+1)
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderFooter renders the keyboard hint line.
func (m Model) renderFooter() string {
	hints := []string{"q quit", "r refresh", "s sort", "↑↓ select", "? help"}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

func (m Model) renderHelp() string {
	rows := [][2]string{
		{"q, ctrl+c", "quit"},
		{"r", "re-read the database now"},
		{"s", "cycle sort: name, load, memory"},
		{"up/k, down/j", "move the selection"},
		{"home, end", "first or last host"},
		{"?, esc", "close this help"},
	}
	keyStyle := lipgloss.NewStyle().Foreground(ui.ColorNeonCyan).Width(14)
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, HostNameStyle.Render("Keys"), "")
	for _, r := range rows {
		lines = append(lines, keyStyle.Render(r[0])+r[1])
	}
	return HelpStyle.Render(strings.Join(lines, "\n"))
}

func formatLoad(s *store.Sample) string {
	if s.Load1 == nil || s.Load5 == nil || s.Load15 == nil {
		return ui.MutedStyle().Render("unknown")
	}
	return fmt.Sprintf("%.2f %.2f %.2f", *s.Load1, *s.Load5, *s.Load15)
}

func renderMemory(s *store.Sample) string {
	used, total := 0, 0
	if s.UsedMemoryMB != nil && s.TotalMemoryMB != nil {
		used, total = int(*s.UsedMemoryMB), int(*s.TotalMemoryMB)
	}
	return ui.RenderMemoryBar(used, total, memoryBarWidth)
}
