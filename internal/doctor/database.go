package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/rileyhilliard/loadwatch/internal/store"
)

// DatabaseCheck opens the database and reports its schema version. A
// missing file is only a warning; the first command that needs it
// creates it.
type DatabaseCheck struct {
	Path string
}

func (c *DatabaseCheck) Name() string     { return "database" }
func (c *DatabaseCheck) Category() string { return CategoryDatabase }

func (c *DatabaseCheck) Run(ctx context.Context) CheckResult {
	if c.Path != ":memory:" {
		if _, err := os.Stat(c.Path); os.IsNotExist(err) {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusWarn,
				Message:    "Database " + c.Path + " does not exist yet",
				Suggestion: "It is created by 'loadwatch host add' or 'loadwatch serve'",
			}
		}
	}

	st, err := store.New(c.Path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot open database %s: %v", c.Path, err),
			Suggestion: "Check database.path points to a writable SQLite file",
		}
	}
	defer st.Close()

	v, err := st.SchemaVersion(ctx)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("Cannot read schema version: %v", err),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Database: %s (schema v%d)", c.Path, v),
	}
}

func (c *DatabaseCheck) Fix() error { return nil }

// Registry is the part of the store the registry check reads.
type Registry interface {
	Summaries(ctx context.Context) ([]store.HostSummary, error)
}

// RegistryCheck warns when no hosts are registered.
type RegistryCheck struct {
	Store Registry
}

func (c *RegistryCheck) Name() string     { return "registry" }
func (c *RegistryCheck) Category() string { return CategoryDatabase }

func (c *RegistryCheck) Run(ctx context.Context) CheckResult {
	sums, err := c.Store.Summaries(ctx)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("Cannot read the host registry: %v", err),
		}
	}
	if len(sums) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No hosts registered",
			Suggestion: "Add one with 'loadwatch host add'",
		}
	}
	var samples int64
	for _, s := range sums {
		samples += s.SampleCount
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d host%s, %d samples stored", len(sums), pluralize(len(sums)), samples),
	}
}

func (c *RegistryCheck) Fix() error { return nil }
