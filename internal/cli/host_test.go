package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/testutil"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostAdd_Flags(t *testing.T) {
	h := newHarness(t)

	out, err := h.runWithInput("s3cret\n",
		"host", "add", "--name", "web-1", "--address", "10.0.0.5", "--port", "2222", "--user", "monitor", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Added host 'web-1'")

	got, err := h.store().GetHostByName(context.Background(), "web-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", got.Address)
	assert.Equal(t, 2222, got.Port)
	assert.Equal(t, "monitor", got.Username)
	assert.Equal(t, "s3cret", got.Password)
}

func TestHostAdd_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{
			name: "missing fields off a terminal",
			args: []string{"--name", "web-1"},
			code: errors.ErrConfig,
		},
		{
			name: "bad port",
			args: []string{"--name", "web-1", "--address", "h", "--user", "u", "--password", "p", "--port", "70000"},
			code: errors.ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.run(append([]string{"host", "add"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestHostAdd_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.addHost("web-1")

	_, err := h.run("host", "add", "--name", "web-1", "--address", "other", "--user", "u", "--password", "p")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
}

func TestHostAdd_Check(t *testing.T) {
	h := newHarness(t)
	h.dialer.AddHost("10.0.0.5")

	out, err := h.run("host", "add", "--name", "web-1", "--address", "10.0.0.5", "--user", "monitor", "--password", "pw", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "web-1 reachable: load 0.10 0.25 0.30, mem 8000/16000 MB")
	assert.Contains(t, out, "Added host 'web-1'")

	targets := h.dialer.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, "monitor", targets[0].User)
	assert.Equal(t, "pw", targets[0].Password)
}

func TestHostAdd_CheckFailureSavesNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("host", "add", "--name", "web-1", "--address", "10.0.0.9", "--user", "monitor", "--password", "pw", "--check")
	require.Error(t, err)

	hosts, err := h.store().ListHosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestHostList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("host", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No hosts registered")

	web := h.addHost("web-1")
	h.addHost("new-1")
	st := h.store()
	testutil.AddSamples(t, st, web.ID, time.Now().Add(-10*time.Minute), time.Minute, 3)
	require.NoError(t, st.Close())

	out, err = h.run("host", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "web-1")
	assert.Contains(t, out, "monitor@web-1")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, ui.SymbolSuccess)

	out, err = h.run("host", "ls", "--json")
	require.NoError(t, err)
	var hosts []hostJSON
	require.NoError(t, json.Unmarshal([]byte(out), &hosts))
	require.Len(t, hosts, 2)
	assert.Equal(t, "new-1", hosts[0].Name)
	assert.Nil(t, hosts[0].LastSample)
	assert.Equal(t, int64(3), hosts[1].Samples)
	assert.NotNil(t, hosts[1].LastSample)
	assert.NotContains(t, out, "secret")
}

func TestHostRows_Freshness(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	sample := func(age time.Duration) *store.Sample {
		return &store.Sample{Timestamp: now.Add(-age)}
	}

	rows := hostRows([]store.HostSummary{
		{Host: store.Host{ID: 1, Name: "fresh", Port: 22}, Latest: sample(9 * time.Minute), SampleCount: 10},
		{Host: store.Host{ID: 2, Name: "edge", Port: 22}, Latest: sample(10 * time.Minute), SampleCount: 1},
		{Host: store.Host{ID: 3, Name: "stale", Port: 2222}, Latest: sample(11 * time.Minute), SampleCount: 1},
		{Host: store.Host{ID: 4, Name: "never", Port: 22}},
	}, 5*time.Minute, now)

	require.Len(t, rows, 4)
	assert.Equal(t, ui.HostFresh, rows[0].Status)
	assert.Equal(t, "9m ago", rows[0].LastSeen)
	assert.Equal(t, ui.HostFresh, rows[1].Status)
	assert.Equal(t, ui.HostStale, rows[2].Status)
	assert.Contains(t, rows[2].Address, ":2222")
	assert.Equal(t, ui.HostNever, rows[3].Status)
	assert.Equal(t, "0", rows[3].Samples)
}

func TestHostRemove(t *testing.T) {
	h := newHarness(t)
	web := h.addHost("web-1")
	st := h.store()
	testutil.AddSamples(t, st, web.ID, time.Now(), time.Minute, 2)
	require.NoError(t, st.Close())

	_, err := h.run("host", "remove", "web-1")
	require.Error(t, err, "off a terminal without --yes")
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	_, err = h.run("host", "remove", "nope", "--yes")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	out, err := h.run("host", "rm", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed host 'web-1'")

	n, err := h.store().CountSamples(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHostImportExport(t *testing.T) {
	h := newHarness(t)
	h.addHost("web-1")

	file := filepath.Join(h.dir, "fleet.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`hosts:
  - name: web-1
    address: 10.0.0.5
    username: monitor
    password: pw
  - name: db-1
    address: 10.0.0.6
    port: 2222
    username: ops
    password: hunter2
`), 0o600))

	out, err := h.run("host", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "added db-1")
	assert.Contains(t, out, "skipped web-1")
	assert.Contains(t, out, "1 added, 1 skipped")

	out, err = h.run("host", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "name: db-1")
	assert.Contains(t, out, "port: 2222")
	assert.NotContains(t, out, "password")

	backup := filepath.Join(h.dir, "backup.yaml")
	out, err = h.run("host", "export", "--with-secrets", "-o", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 hosts")

	info, err := os.Stat(backup)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(data), "password: hunter2")
}

func TestHostImport_InvalidFile(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(h.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("hosts:\n  - name: a\n    username: u\n    password: p\n"), 0o600))

	_, err := h.run("host", "import", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nothing was imported")
}

func TestApplyAlias(t *testing.T) {
	t.Setenv("USER", "alice")
	aliases := []sshutil.Alias{
		{Name: "db", HostName: "10.0.0.9", User: "ops", Port: 2222},
		{Name: "web-1", HostName: "10.0.0.5"},
	}

	tests := []struct {
		name string
		host store.Host
		pick string
		want store.Host
	}{
		{
			name: "alias supplies user and port",
			host: store.Host{Name: "db"},
			pick: "db",
			want: store.Host{Name: "db", Address: "db", Username: "ops", Port: 2222},
		},
		{
			name: "flags win over the alias",
			host: store.Host{Name: "db", Username: "root", Port: 22},
			pick: "db",
			want: store.Host{Name: "db", Address: "db", Username: "root", Port: 22},
		},
		{
			name: "alias without a user falls back to $USER",
			host: store.Host{Name: "web"},
			pick: "web-1",
			want: store.Host{Name: "web", Address: "web-1", Username: "alice"},
		},
		{
			name: "typed address",
			host: store.Host{Name: "cache", Address: "10.0.0.7"},
			want: store.Host{Name: "cache", Address: "10.0.0.7", Username: "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.host
			applyAlias(&h, aliases, tt.pick)
			assert.Equal(t, tt.want, h)
		})
	}
}
