package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "bare tilde", input: "~", expected: home},
		{name: "tilde path", input: "~/data/lw.db", expected: filepath.Join(home, "data", "lw.db")},
		{name: "tilde user unsupported", input: "~bob/x", expected: "~bob/x"},
		{name: "absolute path unchanged", input: "/var/lib/loadwatch.db", expected: "/var/lib/loadwatch.db"},
		{name: "relative path unchanged", input: "loadwatch.db", expected: "loadwatch.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandTilde(tt.input))
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LW_DATA", "/srv/data")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "braced variable", input: "${LW_DATA}/lw.db", expected: "/srv/data/lw.db"},
		{name: "bare variable", input: "$LW_DATA/lw.db", expected: "/srv/data/lw.db"},
		{name: "HOME variable", input: "${HOME}/lw.db", expected: filepath.Join(home, "lw.db")},
		{name: "tilde still expands", input: "~/lw.db", expected: filepath.Join(home, "lw.db")},
		{name: "unset variable is empty", input: "/x/${LW_NOT_SET_ANYWHERE}/y", expected: "/x//y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}
