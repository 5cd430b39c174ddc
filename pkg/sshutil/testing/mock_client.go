package testing

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Delay holds the command open until it elapses or the context ends.
	Delay time.Duration
}

// MockClient simulates an SSH connection for testing.
// Commands it recognizes (cat /proc/loadavg, free, uname) are answered from
// its MockProc; anything else needs a canned response.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	proc     *MockProc
	closed   bool
	commands map[string]CommandResponse // pattern -> response
	execLog  []string
	onClose  func()
}

// NewMockClient creates a new mock SSH client backed by a fresh MockProc.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		address:  host + ":22",
		proc:     NewMockProc(),
		commands: make(map[string]CommandResponse),
	}
}

// Exec answers a command from canned responses or the simulated /proc.
func (m *MockClient) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.execLog = append(m.execLog, cmd)
	resp, ok := m.lookup(cmd)
	m.mu.Unlock()

	if !ok {
		resp = m.parseAndExecute(cmd)
	}

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, -1, ctx.Err()
		case <-time.After(resp.Delay):
		}
	} else if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}

	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

// lookup checks exact matches first, then regex patterns. Caller holds mu.
func (m *MockClient) lookup(cmd string) (CommandResponse, bool) {
	if resp, ok := m.commands[cmd]; ok {
		return resp, true
	}
	for pattern, resp := range m.commands {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return resp, true
		}
	}
	return CommandResponse{}, false
}

func (m *MockClient) parseAndExecute(cmd string) CommandResponse {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return CommandResponse{ExitCode: 0}
	}

	switch {
	case cmd == "cat /proc/loadavg":
		return CommandResponse{Stdout: []byte(m.proc.Loadavg())}
	case fields[0] == "free":
		return CommandResponse{Stdout: []byte(m.proc.Free())}
	case fields[0] == "uname":
		return CommandResponse{Stdout: []byte("Linux\n")}
	default:
		return CommandResponse{
			Stderr:   []byte("sh: " + fields[0] + ": command not found\n"),
			ExitCode: 127,
		}
	}
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	wasOpen := !m.closed
	m.closed = true
	onClose := m.onClose
	m.mu.Unlock()

	if wasOpen && onClose != nil {
		onClose()
	}
	return nil
}

// IsClosed reports whether Close has been called since the last dial.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[pattern] = resp
}

// Proc returns the simulated kernel counters for direct manipulation in tests.
func (m *MockClient) Proc() *MockProc {
	return m.proc
}

// ExecLog returns the commands run so far, in order.
func (m *MockClient) ExecLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.execLog))
	copy(out, m.execLog)
	return out
}

// reopen readies the client for another dial.
func (m *MockClient) reopen(onClose func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	m.onClose = onClose
}
