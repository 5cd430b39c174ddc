package cli

import (
	stderrors "errors"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unknown command", err: stderrors.New(`unknown command "foo" for "loadwatch"`), want: true},
		{name: "unknown flag", err: stderrors.New(`unknown flag: --foo`), want: true},
		{name: "unknown shorthand", err: stderrors.New(`unknown shorthand flag: 'z' in -z`), want: true},
		{name: "other error", err: stderrors.New("connection failed"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("colect")
	require.Error(t, err)
	assert.True(t, isUnknownCommandError(err))
	assert.Contains(t, err.Error(), "collect", "cobra suggests the closest command")
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCmd(Deps{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "collect", "host", "metrics", "monitor", "prune", "config", "doctor", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	hostCmd, _, err := root.Find([]string{"host"})
	require.NoError(t, err)
	var sub []string
	for _, c := range hostCmd.Commands() {
		sub = append(sub, c.Name())
	}
	assert.ElementsMatch(t, []string{"add", "list", "remove", "import", "export"}, sub)
}

func TestCompletion(t *testing.T) {
	h := newHarness(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := h.run("completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "loadwatch")
		})
	}

	_, err := h.run("completion", "tcsh")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	defer SetVersionInfo(origVersion, origCommit, origDate)

	SetVersionInfo("1.2.3", "abc1234", "2026-10-18T12:00:00Z")
	h := newHarness(t)

	out, err := h.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "loadwatch v1.2.3")
	assert.Contains(t, out, "commit: abc1234")
	assert.Contains(t, out, "built: 2026-10-18T12:00:00Z")
	assert.Contains(t, out, "go: "+runtime.Version())
	assert.Contains(t, out, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH)

	out, err = h.run("version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", strings.TrimSpace(out))
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"dev", "dev"},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.input), "input %q", tt.input)
	}
}
