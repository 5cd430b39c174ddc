package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/loadwatch/internal/config"
	"github.com/rileyhilliard/loadwatch/internal/errors"
)

// ConfigFileCheck verifies that a config file exists. Running on pure
// defaults is allowed, so a missing file is a warning unless it was
// asked for explicitly.
type ConfigFileCheck struct {
	Path string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.Path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summary(err),
			Suggestion: "Run 'loadwatch doctor --fix' or 'loadwatch config init " + c.Path + "'",
			Fixable:    true,
		}
	}
	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found, running on defaults",
			Suggestion: "Run 'loadwatch config init' to write " + config.ConfigFileName,
			Fixable:    true,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Config file: " + path,
	}
}

// Fix writes the default config where the check expected one.
func (c *ConfigFileCheck) Fix() error {
	path := c.Path
	if path == "" {
		path = config.ConfigFileName
	}
	return config.WriteDefault(path, false)
}

// ConfigValidCheck loads and validates the effective config.
type ConfigValidCheck struct {
	Path string
}

func (c *ConfigValidCheck) Name() string     { return "config_valid" }
func (c *ConfigValidCheck) Category() string { return CategoryConfig }

func (c *ConfigValidCheck) Run(context.Context) CheckResult {
	cfg, err := config.Load(c.Path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summary(err),
			Suggestion: suggestionOf(err),
		}
	}
	return CheckResult{
		Name:   c.Name(),
		Status: StatusPass,
		Message: fmt.Sprintf("Collecting every %s, keeping %s",
			cfg.Collection.Interval, cfg.Retention.Window),
	}
}

func (c *ConfigValidCheck) Fix() error { return nil }

// suggestionOf returns the fix hint carried by a structured error.
func suggestionOf(err error) string {
	var lwErr *errors.Error
	if stderrors.As(err, &lwErr) {
		return lwErr.Suggestion
	}
	return ""
}
