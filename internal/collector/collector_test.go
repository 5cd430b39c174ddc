package collector

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
	sshtesting "github.com/rileyhilliard/loadwatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCollector(d sshutil.Dialer, timeout time.Duration) *Collector {
	return New(d, Options{
		Timeout: timeout,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestNew_Defaults(t *testing.T) {
	c := New(nil, Options{})

	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, DefaultLoadCommand, c.opts.LoadCommand)
	assert.Equal(t, DefaultMemoryCommand, c.opts.MemoryCommand)
	assert.Equal(t, DefaultTimeout, c.opts.SSH.Timeout)
	assert.NotNil(t, c.dialer)
	assert.NotNil(t, c.opts.Now)
}

func TestCollect_Success(t *testing.T) {
	d := sshtesting.NewMockDialer()
	client := d.AddHost("10.0.0.1")
	sshtesting.WithLoad(client, 0.10, 0.25, 0.30)

	c := newTestCollector(d, time.Second)
	target := sshutil.Target{Host: "10.0.0.1", Port: 22, User: "ops", Password: "pw"}

	out, err := c.Collect(context.Background(), "web-1", target)
	require.NoError(t, err)

	assert.Equal(t, "0.10 0.25 0.30 1/200 1234\n", out.Load)
	assert.Contains(t, out.Memory, "Mem:")
	assert.Equal(t, fixedNow, out.CollectedAt)

	// Commands run in order, and the connection is released
	assert.Equal(t, []string{DefaultLoadCommand, DefaultMemoryCommand}, client.ExecLog())
	assert.True(t, client.IsClosed())
	assert.Equal(t, 0, d.OpenConnections())

	require.Len(t, d.Targets(), 1)
	assert.Equal(t, target, d.Targets()[0])
}

func TestCollect_CustomCommands(t *testing.T) {
	d := sshtesting.NewMockDialer()
	client := d.AddHost("h")
	client.SetCommandResponse("uptime", sshtesting.CommandResponse{Stdout: []byte("1 2 3\n")})
	client.SetCommandResponse("cat /proc/meminfo", sshtesting.CommandResponse{Stdout: []byte("MemTotal: 1024 kB\n")})

	c := New(d, Options{LoadCommand: "uptime", MemoryCommand: "cat /proc/meminfo"})
	out, err := c.Collect(context.Background(), "h", sshutil.Target{Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, "1 2 3\n", out.Load)
	assert.Equal(t, []string{"uptime", "cat /proc/meminfo"}, client.ExecLog())
}

func TestCollect_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(d *sshtesting.MockDialer) *sshtesting.MockClient
		wantStage Stage
		wantCode  string
		wantMsg   string
		wantRuns  []string
	}{
		{
			name: "unreachable",
			setup: func(d *sshtesting.MockDialer) *sshtesting.MockClient {
				d.SetDialError("h", errors.New(errors.ErrSSH, "Can't reach 'h'", ""))
				return nil
			},
			wantStage: StageConnect,
			wantCode:  errors.ErrSSH,
			wantMsg:   "Can't reach",
		},
		{
			name: "load command exits non-zero",
			setup: func(d *sshtesting.MockDialer) *sshtesting.MockClient {
				return sshtesting.WithFailingCommand(d.AddHost("h"), DefaultLoadCommand, 1, "cat: /proc/loadavg: No such file or directory")
			},
			wantStage: StageLoadCommand,
			wantCode:  errors.ErrExec,
			wantMsg:   "exited with status 1",
			wantRuns:  []string{DefaultLoadCommand},
		},
		{
			name: "memory command missing",
			setup: func(d *sshtesting.MockDialer) *sshtesting.MockClient {
				return sshtesting.WithFailingCommand(d.AddHost("h"), DefaultMemoryCommand, 127, "sh: free: not found")
			},
			wantStage: StageMemoryCommand,
			wantCode:  errors.ErrExec,
			wantMsg:   "free: not found",
			wantRuns:  []string{DefaultLoadCommand, DefaultMemoryCommand},
		},
		{
			name: "empty output",
			setup: func(d *sshtesting.MockDialer) *sshtesting.MockClient {
				c := d.AddHost("h")
				c.SetCommandResponse(DefaultLoadCommand, sshtesting.CommandResponse{Stdout: []byte("  \n")})
				return c
			},
			wantStage: StageLoadCommand,
			wantCode:  errors.ErrExec,
			wantMsg:   "printed nothing",
			wantRuns:  []string{DefaultLoadCommand},
		},
		{
			name: "session error",
			setup: func(d *sshtesting.MockDialer) *sshtesting.MockClient {
				c := d.AddHost("h")
				c.SetCommandResponse(DefaultMemoryCommand, sshtesting.CommandResponse{Error: stderrors.New("channel closed")})
				return c
			},
			wantStage: StageMemoryCommand,
			wantCode:  errors.ErrExec,
			wantMsg:   "channel closed",
			wantRuns:  []string{DefaultLoadCommand, DefaultMemoryCommand},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sshtesting.NewMockDialer()
			client := tt.setup(d)
			c := newTestCollector(d, time.Second)

			_, err := c.Collect(context.Background(), "web-1", sshutil.Target{Host: "h"})
			require.Error(t, err)

			var ce *CollectionError
			require.True(t, stderrors.As(err, &ce))
			assert.Equal(t, "web-1", ce.Host)
			assert.Equal(t, tt.wantStage, ce.Stage)
			assert.Equal(t, tt.wantCode, ce.Code())
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NotContains(t, err.Error(), "\n")

			assert.Equal(t, 0, d.OpenConnections(), "connection leaked")
			if client != nil {
				assert.Equal(t, tt.wantRuns, client.ExecLog())
				assert.True(t, client.IsClosed())
			}
		})
	}
}

func TestCollect_TimeoutClosesConnection(t *testing.T) {
	d := sshtesting.NewMockDialer()
	client := d.AddHost("slow")
	client.SetCommandResponse(DefaultMemoryCommand, sshtesting.CommandResponse{Delay: time.Minute})

	c := newTestCollector(d, 50*time.Millisecond)

	start := time.Now()
	_, err := c.Collect(context.Background(), "slow", sshutil.Target{Host: "slow"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var ce *CollectionError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, StageMemoryCommand, ce.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "didn't finish in time")
	assert.True(t, client.IsClosed())
	assert.Equal(t, 0, d.OpenConnections())
}

func TestCollect_TimeoutCoversDial(t *testing.T) {
	d := sshtesting.NewMockDialer()
	d.AddHost("stuck")
	d.BeforeDial = func(ctx context.Context, target sshutil.Target) error {
		<-ctx.Done()
		return ctx.Err()
	}

	c := newTestCollector(d, 30*time.Millisecond)
	_, err := c.Collect(context.Background(), "stuck", sshutil.Target{Host: "stuck"})

	var ce *CollectionError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, StageConnect, ce.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollect_ParentCancel(t *testing.T) {
	d := sshtesting.NewMockDialer()
	d.AddHost("h")
	c := newTestCollector(d, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx, "h", sshutil.Target{Host: "h"})
	var ce *CollectionError
	require.True(t, stderrors.As(err, &ce))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, d.OpenConnections())
}

func TestCollect_NoRetries(t *testing.T) {
	d := sshtesting.NewMockDialer()
	d.SetDialError("h", stderrors.New("connection refused"))
	c := newTestCollector(d, time.Second)

	_, err := c.Collect(context.Background(), "h", sshutil.Target{Host: "h"})
	require.Error(t, err)
	assert.Equal(t, 1, d.DialCount("h"))
}

func TestCollect_AgainstSSHServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	proc := sshtesting.NewMockProc()
	proc.SetLoad(2.5, 1.5, 0.5)
	srv := sshtesting.NewProcServer(t, "monitor", "pw", proc)

	c := New(nil, Options{
		Timeout: 5 * time.Second,
		SSH:     sshutil.Options{SSHConfigPath: "-"},
	})
	out, err := c.Collect(context.Background(), "lab", sshutil.Target{
		Host: srv.Host(), Port: srv.Port(), User: "monitor", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "2.50 1.50 0.50 1/200 1234\n", out.Load)
	assert.Contains(t, out.Memory, "16384000")
	assert.Equal(t, []string{DefaultLoadCommand, DefaultMemoryCommand}, srv.Commands())
}

func TestCollectionError(t *testing.T) {
	cause := errors.WrapWithCode(stderrors.New("dial tcp: i/o timeout"), errors.ErrSSH,
		"Can't reach 'db' at 10.0.0.9:22", "Check the network")
	err := &CollectionError{Host: "db", Stage: StageConnect, Cause: cause}

	assert.Equal(t, "collect db: connect: Can't reach 'db' at 10.0.0.9:22: dial tcp: i/o timeout", err.Error())
	assert.Equal(t, "connect failed: Can't reach 'db' at 10.0.0.9:22: dial tcp: i/o timeout", err.Short())
	assert.Equal(t, errors.ErrSSH, err.Code())
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}

func TestCollectionError_PlainCause(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageConnect, errors.ErrSSH},
		{StageLoadCommand, errors.ErrExec},
		{StageMemoryCommand, errors.ErrExec},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			err := &CollectionError{Host: "db", Stage: tt.stage, Cause: stderrors.New("dial tcp: connection refused")}
			assert.True(t, errors.IsCode(err, tt.want), "got %v", err)
			assert.Equal(t, tt.want, errors.Code(err))
		})
	}
}

func TestCommandFailure(t *testing.T) {
	assert.Equal(t, `"free -k" exited with status 2: boom`,
		(&commandFailure{Command: "free -k", ExitCode: 2, Stderr: "boom"}).Error())
	assert.Equal(t, `"free -k" exited with status 2`,
		(&commandFailure{Command: "free -k", ExitCode: 2}).Error())
	assert.Equal(t, `"free -k" printed nothing`,
		(&commandFailure{Command: "free -k"}).Error())
}
