package collector

import (
	"context"
	"strings"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
)

// Default commands for Linux hosts.
const (
	DefaultLoadCommand   = "cat /proc/loadavg"
	DefaultMemoryCommand = "free -k"
	DefaultTimeout       = 10 * time.Second
)

// Options configures a Collector.
type Options struct {
	// Timeout bounds the whole collection: connect, handshake and both
	// commands. Zero means DefaultTimeout.
	Timeout time.Duration

	LoadCommand   string
	MemoryCommand string

	// SSH is passed to the dialer. Its Timeout is overwritten with Timeout.
	SSH sshutil.Options

	// Now stamps collections. Defaults to time.Now.
	Now func() time.Time
}

// RawOutputs is the unparsed stdout of the two diagnostic commands.
type RawOutputs struct {
	Load   string
	Memory string

	// CollectedAt is taken from the local clock once both commands have
	// returned. The remote host's clock is never consulted.
	CollectedAt time.Time
}

// Collector runs the diagnostic commands against one host at a time.
// It is safe for concurrent use.
type Collector struct {
	dialer sshutil.Dialer
	opts   Options
}

// New creates a Collector. A nil dialer means sshutil.DefaultDialer.
func New(dialer sshutil.Dialer, opts Options) *Collector {
	if dialer == nil {
		dialer = sshutil.DefaultDialer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LoadCommand == "" {
		opts.LoadCommand = DefaultLoadCommand
	}
	if opts.MemoryCommand == "" {
		opts.MemoryCommand = DefaultMemoryCommand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.SSH.Timeout = opts.Timeout
	return &Collector{dialer: dialer, opts: opts}
}

// Timeout returns the per-host time budget.
func (c *Collector) Timeout() time.Duration {
	return c.opts.Timeout
}

// Collect connects to target, runs the load command and then the memory
// command, and returns their output. name identifies the host in errors.
// The returned error is always a *CollectionError.
func (c *Collector) Collect(ctx context.Context, name string, target sshutil.Target) (RawOutputs, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	client, err := c.dialer.Dial(ctx, target, c.opts.SSH)
	if err != nil {
		return RawOutputs{}, &CollectionError{Host: name, Stage: StageConnect, Cause: err}
	}
	defer client.Close()

	load, err := c.run(ctx, client, c.opts.LoadCommand)
	if err != nil {
		return RawOutputs{}, &CollectionError{Host: name, Stage: StageLoadCommand, Cause: err}
	}

	memory, err := c.run(ctx, client, c.opts.MemoryCommand)
	if err != nil {
		return RawOutputs{}, &CollectionError{Host: name, Stage: StageMemoryCommand, Cause: err}
	}

	return RawOutputs{Load: load, Memory: memory, CollectedAt: c.opts.Now()}, nil
}

func (c *Collector) run(ctx context.Context, client sshutil.SSHClient, cmd string) (string, error) {
	stdout, stderr, exitCode, err := client.Exec(ctx, cmd)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.IsCode(err, errors.ErrExec) {
			return "", errors.WrapWithCode(err, errors.ErrExec,
				"Command didn't finish in time: "+cmd,
				"Raise collection.timeout if the host is slow to respond.")
		}
		return "", err
	}
	if exitCode != 0 {
		return "", errors.WrapWithCode(&commandFailure{
			Command:  cmd,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(string(stderr)),
		}, errors.ErrExec, "Diagnostic command failed", "Check the command runs on the host: ssh <host> "+cmd)
	}
	if strings.TrimSpace(string(stdout)) == "" {
		return "", errors.WrapWithCode(&commandFailure{Command: cmd}, errors.ErrExec,
			"Diagnostic command printed nothing", "Check the command runs on the host: ssh <host> "+cmd)
	}
	return string(stdout), nil
}
