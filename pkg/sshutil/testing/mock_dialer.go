package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
)

// MockDialer hands out MockClients keyed by target host and tracks how many
// connections are open at once.
type MockDialer struct {
	mu         sync.Mutex
	clients    map[string]*MockClient
	dialErrors map[string]error
	dials      map[string]int
	targets    []sshutil.Target
	open       int
	maxOpen    int

	// BeforeDial runs before each dial outside the lock. Tests use it to
	// hold connections open or to observe timing. A non-nil error fails
	// the dial.
	BeforeDial func(ctx context.Context, target sshutil.Target) error
}

var _ sshutil.Dialer = (*MockDialer)(nil)

// NewMockDialer creates a dialer with no reachable hosts.
func NewMockDialer() *MockDialer {
	return &MockDialer{
		clients:    make(map[string]*MockClient),
		dialErrors: make(map[string]error),
		dials:      make(map[string]int),
	}
}

// AddHost makes host reachable and returns its client.
func (d *MockDialer) AddHost(host string) *MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := NewMockClient(host)
	d.clients[host] = c
	return c
}

// SetDialError makes dials to host fail with err.
func (d *MockDialer) SetDialError(host string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErrors[host] = err
}

// Dial returns the MockClient registered for target.Host.
func (d *MockDialer) Dial(ctx context.Context, target sshutil.Target, opts sshutil.Options) (sshutil.SSHClient, error) {
	if d.BeforeDial != nil {
		if err := d.BeforeDial(ctx, target); err != nil {
			d.record(target)
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		d.record(target)
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[target.Host]++
	d.targets = append(d.targets, target)

	if err, ok := d.dialErrors[target.Host]; ok {
		return nil, err
	}
	c, ok := d.clients[target.Host]
	if !ok {
		return nil, fmt.Errorf("dial tcp %s:22: connect: connection refused", target.Host)
	}

	d.open++
	if d.open > d.maxOpen {
		d.maxOpen = d.open
	}
	c.reopen(func() {
		d.mu.Lock()
		d.open--
		d.mu.Unlock()
	})
	return c, nil
}

func (d *MockDialer) record(target sshutil.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[target.Host]++
	d.targets = append(d.targets, target)
}

// DialCount returns how many times host was dialed.
func (d *MockDialer) DialCount(host string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[host]
}

// Targets returns every target dialed, in order.
func (d *MockDialer) Targets() []sshutil.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sshutil.Target, len(d.targets))
	copy(out, d.targets)
	return out
}

// OpenConnections returns the number of dialed clients not yet closed.
func (d *MockDialer) OpenConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// MaxConcurrent returns the highest number of simultaneously open clients.
func (d *MockDialer) MaxConcurrent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxOpen
}
