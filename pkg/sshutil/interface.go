package sshutil

import "context"

// SSHClient defines the interface for SSH command execution.
// Both the real Client and mock implementations satisfy this interface.
//
// This interface enables testing of SSH-dependent code without requiring
// actual SSH connections.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// Dialer opens connections to targets. The package-level Dial satisfies it
// through DialFunc.
type Dialer interface {
	Dial(ctx context.Context, target Target, opts Options) (SSHClient, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, target Target, opts Options) (SSHClient, error)

// Dial calls f.
func (f DialFunc) Dial(ctx context.Context, target Target, opts Options) (SSHClient, error) {
	return f(ctx, target, opts)
}

// DefaultDialer dials real SSH connections.
var DefaultDialer Dialer = DialFunc(func(ctx context.Context, target Target, opts Options) (SSHClient, error) {
	c, err := Dial(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
})
