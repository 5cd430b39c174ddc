package monitor

import tea "github.com/charmbracelet/bubbletea"

// SortOrder defines how hosts are sorted in the dashboard.
type SortOrder int

const (
	SortByName SortOrder = iota
	SortByLoad
	SortByMemory
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByLoad:
		return "load"
	case SortByMemory:
		return "memory"
	default:
		return "name"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return SortOrder((int(s) + 1) % 3)
}

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyCycleSort   = "s"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeyToggleHelp  = "?"
	KeyCloseHelp   = "esc"
)

// HandleKeyMsg processes keyboard input. It reports whether the key was
// handled and returns the command to run, if any.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyCloseHelp {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit
	case KeyRefresh:
		return true, m.refreshCmd()
	case KeyCycleSort:
		m.sortOrder = m.sortOrder.Next()
		m.sortHosts()
		return true, nil
	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil
	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.hosts)-1 {
			m.selected++
		}
		return true, nil
	case KeySelectFirst:
		if len(m.hosts) > 0 {
			m.selected = 0
		}
		return true, nil
	case KeySelectLast:
		m.selected = len(m.hosts) - 1
		return true, nil
	}
	return false, nil
}
