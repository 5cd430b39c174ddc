package doctor

import (
	"context"
	"net"
	"os"
	"time"
)

// KnownHostsCheck verifies the known_hosts file when strict host key
// checking is on, and warns when it is off.
type KnownHostsCheck struct {
	Strict bool
	Path   string
}

func (c *KnownHostsCheck) Name() string     { return "known_hosts" }
func (c *KnownHostsCheck) Category() string { return CategorySSH }

func (c *KnownHostsCheck) Run(context.Context) CheckResult {
	if !c.Strict {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Host keys are not verified",
			Suggestion: "Set ssh.strict_host_key_checking to true once known_hosts lists every host",
		}
	}
	if _, err := os.Stat(c.Path); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "known_hosts not readable: " + c.Path,
			Suggestion: "Connect to each host once with ssh, or point ssh.known_hosts at the right file",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Host keys checked against " + c.Path,
	}
}

func (c *KnownHostsCheck) Fix() error { return nil }

// SSHAgentCheck verifies the SSH agent is reachable when ssh.use_agent is on.
type SSHAgentCheck struct {
	Enabled bool
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	if !c.Enabled {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "SSH agent disabled, using host passwords only",
		}
	}

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running, falling back to host passwords",
			Suggestion: "Start one with: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.DialTimeout("unix", socket, 2*time.Second)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not responding: " + socket,
			Suggestion: "Restart the agent: eval $(ssh-agent) && ssh-add",
		}
	}
	conn.Close()

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "SSH agent running",
	}
}

func (c *SSHAgentCheck) Fix() error { return nil }
