package config

import (
	"testing"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "future version",
			mutate:  func(c *Config) { c.Version = CurrentConfigVersion + 1 },
			wantErr: "from the future",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Collection.Interval = 0 },
			wantErr: "collection.interval must be positive",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Collection.Timeout = -time.Second },
			wantErr: "collection.timeout must be positive",
		},
		{
			name:    "timeout not shorter than interval",
			mutate:  func(c *Config) { c.Collection.Timeout = c.Collection.Interval },
			wantErr: "must be shorter than collection.interval",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Collection.Concurrency = 0 },
			wantErr: "collection.concurrency must be at least 1",
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Retention.Window = 0 },
			wantErr: "retention.window must be positive",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "  " },
			wantErr: "database.path is empty",
		},
		{
			name:    "empty load command",
			mutate:  func(c *Config) { c.SSH.LoadCommand = "" },
			wantErr: "ssh.load_command is empty",
		},
		{
			name:    "empty memory command",
			mutate:  func(c *Config) { c.SSH.MemoryCommand = "" },
			wantErr: "ssh.memory_command is empty",
		},
		{
			name: "strict checking without known_hosts",
			mutate: func(c *Config) {
				c.SSH.StrictHostKeyChecking = true
				c.SSH.KnownHosts = ""
			},
			wantErr: "ssh.known_hosts is required",
		},
		{
			name:    "api limit inverted",
			mutate:  func(c *Config) { c.API.MaxLimit = 10 },
			wantErr: "api.max_limit",
		},
		{
			name: "api limits ignored when disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.MaxLimit = 0
			},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "logfmt" },
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}
