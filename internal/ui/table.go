package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableStyle provides consistent styling for tables across the CLI.
type TableStyle struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style
}

// DefaultTableStyle returns the default table styling.
func DefaultTableStyle() TableStyle {
	return TableStyle{
		Header: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		Cell:   lipgloss.NewStyle().Foreground(ColorPrimary),
		Border: lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates an unfocused Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Unfocused tables still highlight the cursor row; keep it plain.
	s.Selected = s.Cell
	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string, or "" when
// there are no rows.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// Host freshness states for HostRow.Status.
const (
	HostFresh = "fresh" // sampled within the last two intervals
	HostStale = "stale" // has samples, but none recently
	HostNever = "never" // no samples yet
)

// HostRow is one line of the host listing.
type HostRow struct {
	Status   string
	ID       string
	Name     string
	Address  string
	LastSeen string
	Samples  string
}

// RenderHostTable renders registered hosts with a freshness indicator.
func RenderHostTable(rows []HostRow) string {
	if len(rows) == 0 {
		return "No hosts registered"
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	var out strings.Builder
	out.WriteString(headerStyle.Render("    " + padRight("ID", 6) + padRight("NAME", 20) +
		padRight("ADDRESS", 26) + padRight("LAST SAMPLE", 22) + "SAMPLES"))
	out.WriteString("\n")

	for _, row := range rows {
		var icon, last string
		switch row.Status {
		case HostFresh:
			icon = SuccessStyle().Render(SymbolSuccess)
			last = row.LastSeen
		case HostStale:
			icon = WarningStyle().Render(SymbolWarning)
			last = WarningStyle().Render(row.LastSeen)
		default:
			icon = MutedStyle().Render(SymbolPending)
			last = MutedStyle().Render("never")
		}
		out.WriteString("  " + icon + " " +
			padRight(row.ID, 6) +
			padRight(row.Name, 20) +
			padRight(row.Address, 26) +
			padRight(last, 22) +
			MutedStyle().Render(row.Samples) + "\n")
	}
	return out.String()
}

// CycleRow is one host's outcome in a collection cycle.
type CycleRow struct {
	OK     bool
	Host   string
	Detail string // reading on success, failure reason otherwise
	Took   string
}

// RenderCycleReport renders per-host results followed by a summary line.
func RenderCycleReport(rows []CycleRow, summary string) string {
	var out strings.Builder
	if len(rows) == 0 {
		out.WriteString(MutedStyle().Render("No hosts registered"))
		out.WriteString("\n")
	}
	for _, row := range rows {
		icon := SuccessStyle().Render(SymbolSuccess)
		detail := row.Detail
		if !row.OK {
			icon = ErrorStyle().Render(SymbolFail)
			detail = ErrorStyle().Render(row.Detail)
		}
		out.WriteString("  " + icon + " " + padRight(row.Host, 20) + padRight(detail, 48) +
			MutedStyle().Render(row.Took) + "\n")
	}
	if summary != "" {
		out.WriteString(lipgloss.NewStyle().Foreground(ColorGlassBorder).Render(strings.Repeat("─", HeaderWidth)))
		out.WriteString("\n")
		out.WriteString(summary)
		out.WriteString("\n")
	}
	return out.String()
}

// padRight pads s to width visible columns, ignoring ANSI codes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-visible)
}
