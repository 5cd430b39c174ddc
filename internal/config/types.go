package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete loadwatch.yaml configuration file.
type Config struct {
	Version    int              `yaml:"version" mapstructure:"version"`
	Collection CollectionConfig `yaml:"collection" mapstructure:"collection"`
	Retention  RetentionConfig  `yaml:"retention" mapstructure:"retention"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	SSH        SSHConfig        `yaml:"ssh" mapstructure:"ssh"`
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CollectionConfig controls the collection scheduler.
type CollectionConfig struct {
	// Interval between cycle starts.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Timeout bounds connecting to a host and running its commands.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Concurrency caps simultaneous outbound SSH connections in a cycle.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`

	// RunOnStart runs a cycle immediately instead of waiting one interval.
	RunOnStart bool `yaml:"run_on_start" mapstructure:"run_on_start"`
}

// RetentionConfig controls pruning of old samples.
type RetentionConfig struct {
	// Window is the maximum age of a sample before it is deleted.
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SSHConfig controls how the collector talks to hosts.
type SSHConfig struct {
	// StrictHostKeyChecking verifies host keys against KnownHosts.
	// When false, unknown host keys are accepted.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	// KnownHosts is the known_hosts file used when StrictHostKeyChecking is on.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// UseAgent adds SSH agent keys as an auth method after the host password.
	UseAgent bool `yaml:"use_agent" mapstructure:"use_agent"`

	// LoadCommand prints the load-average line.
	LoadCommand string `yaml:"load_command" mapstructure:"load_command"`

	// MemoryCommand prints the memory summary in kilobytes.
	MemoryCommand string `yaml:"memory_command" mapstructure:"memory_command"`
}

// APIConfig controls the HTTP query and management API.
type APIConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen       string `yaml:"listen" mapstructure:"listen"`
	DefaultLimit int    `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int    `yaml:"max_limit" mapstructure:"max_limit"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Collection: CollectionConfig{
			Interval:    300 * time.Second,
			Timeout:     10 * time.Second,
			Concurrency: 8,
			RunOnStart:  true,
		},
		Retention: RetentionConfig{
			Window: 30 * 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Path: "loadwatch.db",
		},
		SSH: SSHConfig{
			StrictHostKeyChecking: false,
			KnownHosts:            "~/.ssh/known_hosts",
			UseAgent:              true,
			LoadCommand:           "cat /proc/loadavg",
			MemoryCommand:         "free -k",
		},
		API: APIConfig{
			Enabled:      true,
			Listen:       "127.0.0.1:8000",
			DefaultLimit: 288,
			MaxLimit:     10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
