package monitor

import (
	"context"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// HostStatus is how recent a host's newest sample is.
type HostStatus int

const (
	StatusNever HostStatus = iota
	StatusFresh
	StatusStale
)

// String returns a human-readable status string.
func (s HostStatus) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	default:
		return "never"
	}
}

// DefaultHistory is how many recent samples feed each card's sparklines.
const DefaultHistory = 36

// Options configures a Model.
type Options struct {
	// Refresh is how often the store is re-read.
	Refresh time.Duration

	// StaleAfter marks a host stale when its newest sample is older.
	StaleAfter time.Duration

	// History is the number of samples per sparkline.
	History int

	// Now is used for age calculations. Defaults to time.Now.
	Now func() time.Time
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	src       Source
	opts      Options
	hosts     []HostView
	selected  int
	sortOrder SortOrder
	width     int
	height    int
	lastErr   error
	updated   time.Time
	loaded    bool
	quitting  bool
	showHelp  bool
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// snapshotMsg carries the result of one store read.
type snapshotMsg struct {
	snap Snapshot
	err  error
}

// NewModel creates a dashboard reading from src.
func NewModel(src Source, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = 5 * time.Second
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{src: src, opts: opts}
}

// Init triggers the first read and starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.tickCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.tickCmd(), m.refreshCmd())

	case snapshotMsg:
		m.applySnapshot(msg)
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	src, history, timeout := m.src, m.opts.History, m.opts.Refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := LoadSnapshot(ctx, src, history)
		return snapshotMsg{snap: snap, err: err}
	}
}

// applySnapshot replaces the host list, keeping the selection on the same
// host when it still exists. A failed read keeps the previous data.
func (m *Model) applySnapshot(msg snapshotMsg) {
	if msg.err != nil {
		m.lastErr = msg.err
		return
	}
	m.lastErr = nil
	m.loaded = true
	m.updated = msg.snap.Taken

	selectedID := int64(-1)
	if h, ok := m.SelectedHost(); ok {
		selectedID = h.Host.ID
	}
	m.hosts = msg.snap.Hosts
	m.sortHosts()

	m.selected = 0
	for i, h := range m.hosts {
		if h.Host.ID == selectedID {
			m.selected = i
			break
		}
	}
}

// SelectedHost returns the highlighted host.
func (m Model) SelectedHost() (HostView, bool) {
	if m.selected >= 0 && m.selected < len(m.hosts) {
		return m.hosts[m.selected], true
	}
	return HostView{}, false
}

// Status classifies a host by the age of its newest sample.
func (m Model) Status(v HostView) HostStatus {
	if v.Latest == nil {
		return StatusNever
	}
	if m.opts.StaleAfter > 0 && m.opts.Now().Sub(v.Latest.Timestamp) > m.opts.StaleAfter {
		return StatusStale
	}
	return StatusFresh
}

// FreshCount returns the number of hosts with a recent sample.
func (m Model) FreshCount() int {
	n := 0
	for _, h := range m.hosts {
		if m.Status(h) == StatusFresh {
			n++
		}
	}
	return n
}

// sortHosts orders hosts by the current sort order. Hosts without a
// reading sort last; ties fall back to name.
func (m *Model) sortHosts() {
	var key func(HostView) float64
	switch m.sortOrder {
	case SortByLoad:
		key = HostView.load1
	case SortByMemory:
		key = HostView.memoryPercent
	}

	sort.SliceStable(m.hosts, func(i, j int) bool {
		a, b := m.hosts[i], m.hosts[j]
		if key != nil {
			ka, kb := key(a), key(b)
			if ka != kb {
				return ka > kb
			}
		}
		return a.Host.Name < b.Host.Name
	})
}
