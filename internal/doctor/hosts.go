package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/loadwatch/internal/collector"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/parsers"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
)

// Collector runs the metric commands on one host.
type Collector interface {
	Collect(ctx context.Context, name string, target sshutil.Target) (collector.RawOutputs, error)
}

// Probe collects and parses once without storing anything. It returns a
// one-line reading such as "load 0.10 0.25 0.30, mem 8000/16000 MB".
func Probe(ctx context.Context, c Collector, h store.Host) (string, error) {
	raw, err := c.Collect(ctx, h.Name, sshutil.Target{
		Host:     h.Address,
		Port:     h.Port,
		User:     h.Username,
		Password: h.Password,
	})
	if err != nil {
		return "", err
	}

	load, err := parsers.ParseLoad(raw.Load)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrParse,
			"Host answered but its load output is not understood",
			"Check ssh.load_command prints a /proc/loadavg style line")
	}
	reading := fmt.Sprintf("load %.2f %.2f %.2f", load.Load1, load.Load5, load.Load15)

	mem, err := parsers.ParseMemory(raw.Memory)
	switch {
	case err != nil:
		return "", errors.WrapWithCode(err, errors.ErrParse,
			"Host answered but its memory output is not understood",
			"Check ssh.memory_command prints free -k style output")
	case mem.Present:
		reading += fmt.Sprintf(", mem %.0f/%.0f MB", mem.UsedMB, mem.TotalMB)
	default:
		reading += ", mem unknown"
	}
	return reading, nil
}

// HostCheck probes one registered host.
type HostCheck struct {
	Host      store.Host
	Collector Collector
}

func (c *HostCheck) Name() string     { return "host:" + c.Host.Name }
func (c *HostCheck) Category() string { return CategoryHosts }

func (c *HostCheck) Run(ctx context.Context) CheckResult {
	reading, err := Probe(ctx, c.Collector, c.Host)
	if err != nil {
		suggestion := suggestionOf(err)
		if suggestion == "" {
			suggestion = fmt.Sprintf("Try: ssh -p %d %s@%s", c.Host.Port, c.Host.Username, c.Host.Address)
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.Host.Name, errors.Summary(err)),
			Suggestion: suggestion,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", c.Host.Name, reading),
	}
}

func (c *HostCheck) Fix() error { return nil }

// NewHostChecks builds one HostCheck per host.
func NewHostChecks(hosts []store.Host, c Collector) []Check {
	checks := make([]Check, 0, len(hosts))
	for _, h := range hosts {
		checks = append(checks, &HostCheck{Host: h, Collector: c})
	}
	return checks
}
