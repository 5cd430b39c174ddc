// Package testutil holds shared helpers for package tests.
package testutil

import (
	"sync"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/clock"
)

// Clock is a manually driven clock.Clock. Time only moves when Advance or
// Set is called, and tickers fire from inside those calls.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	created chan struct{}
}

// NewClock returns a fake clock starting at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now, created: make(chan struct{}, 64)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker creates a ticker that fires every d of fake time.
func (c *Clock) NewTicker(d time.Duration) clock.Ticker {
	if d <= 0 {
		panic("testutil: non-positive ticker interval")
	}
	c.mu.Lock()
	t := &fakeTicker{c: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()

	select {
	case c.created <- struct{}{}:
	default:
	}
	return t
}

// Advance moves time forward by d and fires every ticker that came due.
// Like time.Ticker, a tick is dropped when the previous one is unread.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*fakeTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

// Set jumps to now, firing due tickers if time moved forward.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	d := now.Sub(c.now)
	c.mu.Unlock()
	if d > 0 {
		c.Advance(d)
		return
	}
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// WaitForTicker blocks until NewTicker has been called or timeout passes.
// It reports whether a ticker was created.
func (c *Clock) WaitForTicker(timeout time.Duration) bool {
	select {
	case <-c.created:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ActiveTickers returns the number of tickers not yet stopped.
func (c *Clock) ActiveTickers() int {
	c.mu.Lock()
	tickers := append([]*fakeTicker(nil), c.tickers...)
	c.mu.Unlock()

	n := 0
	for _, t := range tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

type fakeTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || now.Before(t.next) {
		return
	}
	for !now.Before(t.next) {
		t.next = t.next.Add(t.period)
	}
	select {
	case t.c <- now:
	default:
	}
}
