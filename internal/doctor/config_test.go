package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/loadwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFileCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadwatch.yaml")

	c := &ConfigFileCheck{Path: path}
	r := c.Run(context.Background())
	assert.Equal(t, StatusFail, r.Status)
	assert.True(t, r.Fixable)

	require.NoError(t, c.Fix())
	r = c.Run(context.Background())
	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTemplate, string(data))

	assert.Error(t, c.Fix(), "never overwrites an existing file")
}

func TestConfigValidCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, config.WriteDefault(good, false))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("collection:\n  interval: 10s\n  timeout: 30s\n"), 0o644))

	r := (&ConfigValidCheck{Path: good}).Run(context.Background())
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "Collecting every 5m0s, keeping 720h0m0s", r.Message)

	r = (&ConfigValidCheck{Path: bad}).Run(context.Background())
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "collection.timeout")
	assert.NotEmpty(t, r.Suggestion)
}
