package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/loadwatch/internal/scheduler"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/testutil"
	sshtesting "github.com/rileyhilliard/loadwatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/require"
)

// harness runs commands against a temp config and database with a mock
// SSH dialer.
type harness struct {
	t          *testing.T
	dir        string
	configPath string
	dbPath     string
	dialer     *sshtesting.MockDialer
	onCycle    func(scheduler.CycleReport)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		t:          t,
		dir:        dir,
		configPath: filepath.Join(dir, "loadwatch.yaml"),
		dbPath:     filepath.Join(dir, "loadwatch.db"),
		dialer:     sshtesting.NewMockDialer(),
	}
	cfg := fmt.Sprintf(`version: 1
collection:
  interval: 1h
  timeout: 2s
  concurrency: 4
  run_on_start: true
retention:
  window: 720h
database:
  path: %s
api:
  listen: 127.0.0.1:0
log:
  level: error
  format: json
`, h.dbPath)
	require.NoError(t, os.WriteFile(h.configPath, []byte(cfg), 0o644))
	return h
}

func (h *harness) run(args ...string) (string, error) {
	return h.runContext(context.Background(), "", args...)
}

func (h *harness) runWithInput(stdin string, args ...string) (string, error) {
	return h.runContext(context.Background(), stdin, args...)
}

func (h *harness) runContext(ctx context.Context, stdin string, args ...string) (string, error) {
	root := NewRootCmd(Deps{
		Dialer:      h.dialer,
		Interactive: func() bool { return false },
		OnCycle:     h.onCycle,
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", h.configPath, "--no-color"}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// store opens the harness database. Close it before running another
// command that writes.
func (h *harness) store() *store.Store {
	h.t.Helper()
	st, err := store.New(h.dbPath)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { st.Close() })
	return st
}

// addHost registers name in the database and makes it reachable.
func (h *harness) addHost(name string) *store.Host {
	h.t.Helper()
	st, err := store.New(h.dbPath)
	require.NoError(h.t, err)
	defer st.Close()
	h.dialer.AddHost(name)
	return testutil.AddHost(h.t, st, name)
}
