package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/loadwatch/internal/errors"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but loadwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade loadwatch or lower the version field.")
	}

	if err := validateCollection(cfg.Collection); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'collection' section in loadwatch.yaml.")
	}

	if cfg.Retention.Window <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retention.window must be positive, got %s", cfg.Retention.Window),
			"Use a duration like 720h (30 days).")
	}

	if strings.TrimSpace(cfg.Database.Path) == "" {
		return errors.New(errors.ErrConfig,
			"database.path is empty",
			"Set database.path to a writable file, e.g. ./loadwatch.db")
	}

	if err := validateSSH(cfg.SSH); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'ssh' section in loadwatch.yaml.")
	}

	if err := validateAPI(cfg.API); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'api' section in loadwatch.yaml.")
	}

	if err := validateLog(cfg.Log); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'log' section in loadwatch.yaml.")
	}

	return nil
}

func validateCollection(c CollectionConfig) error {
	if c.Interval <= 0 {
		return fmt.Errorf("collection.interval must be positive, got %s", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("collection.timeout must be positive, got %s", c.Timeout)
	}
	if c.Timeout >= c.Interval {
		return fmt.Errorf("collection.timeout (%s) must be shorter than collection.interval (%s)", c.Timeout, c.Interval)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("collection.concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

func validateSSH(s SSHConfig) error {
	if strings.TrimSpace(s.LoadCommand) == "" {
		return fmt.Errorf("ssh.load_command is empty")
	}
	if strings.TrimSpace(s.MemoryCommand) == "" {
		return fmt.Errorf("ssh.memory_command is empty")
	}
	if s.StrictHostKeyChecking && strings.TrimSpace(s.KnownHosts) == "" {
		return fmt.Errorf("ssh.known_hosts is required when strict_host_key_checking is on")
	}
	return nil
}

func validateAPI(a APIConfig) error {
	if !a.Enabled {
		return nil
	}
	if strings.TrimSpace(a.Listen) == "" {
		return fmt.Errorf("api.listen is empty")
	}
	if a.DefaultLimit < 1 {
		return fmt.Errorf("api.default_limit must be at least 1, got %d", a.DefaultLimit)
	}
	if a.MaxLimit < a.DefaultLimit {
		return fmt.Errorf("api.max_limit (%d) must be >= api.default_limit (%d)", a.MaxLimit, a.DefaultLimit)
	}
	return nil
}

func validateLog(l LogConfig) error {
	if !validLogLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", l.Level)
	}
	switch l.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("log.format %q must be console or json", l.Format)
	}
}
