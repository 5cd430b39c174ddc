package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/loadwatch/internal/scheduler"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
)

const interval = 5 * time.Minute

func TestStart_TicksEveryInterval(t *testing.T) {
	h := newHarness(t)
	host, client := h.host(t, "web-1")

	s := h.scheduler(scheduler.Options{Interval: interval})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.True(t, h.clock.WaitForTicker(time.Second))

	select {
	case <-h.cycles:
		t.Fatal("cycle ran before the first tick")
	case <-time.After(50 * time.Millisecond):
	}

	h.clock.Advance(interval)
	first := h.waitCycle(t)
	assert.Equal(t, 1, first.Succeeded())

	client.Proc().SetLoad(3, 2, 1)
	h.clock.Advance(interval)
	second := h.waitCycle(t)
	assert.NotEqual(t, first.ID, second.ID)

	got := h.samples(t, host.ID)
	require.Len(t, got, 2)
	assert.Equal(t, epoch.Add(interval), got[0].Timestamp)
	assert.Equal(t, epoch.Add(2*interval), got[1].Timestamp)
	assert.InDelta(t, 3.0, *got[1].Load1, 1e-9)
}

func TestStart_RunOnStart(t *testing.T) {
	h := newHarness(t)
	h.host(t, "web-1")

	s := h.scheduler(scheduler.Options{Interval: interval, RunOnStart: true})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	r := h.waitCycle(t)
	assert.Equal(t, epoch, r.StartedAt)
	assert.Equal(t, 1, r.Succeeded())
}

func TestStart_Twice(t *testing.T) {
	h := newHarness(t)
	s := h.scheduler(scheduler.Options{Interval: interval})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrAlreadyStarted)
}

func TestStart_SkipsTickWhileCycleRuns(t *testing.T) {
	h := newHarness(t)
	h.host(t, "web-1")

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	h.dialer.BeforeDial = func(context.Context, sshutil.Target) error {
		entered <- struct{}{}
		<-release
		return nil
	}

	s := h.scheduler(scheduler.Options{Interval: interval})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.True(t, h.clock.WaitForTicker(time.Second))

	h.clock.Advance(interval)
	<-entered

	h.clock.Advance(interval)
	require.Eventually(t, func() bool {
		return h.log.Contains("warn", "skipping this tick")
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	h.waitCycle(t)

	assert.Equal(t, 1.0, counterValue(t, h.metrics, "loadwatch_cycles_skipped_total", ""))
	assert.Equal(t, 1.0, counterValue(t, h.metrics, "loadwatch_cycles_total", ""))
	select {
	case <-h.cycles:
		t.Fatal("skipped tick must not be queued")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStop_WaitsForInFlightCycle(t *testing.T) {
	h := newHarness(t)
	h.host(t, "web-1")

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	h.dialer.BeforeDial = func(context.Context, sshutil.Target) error {
		entered <- struct{}{}
		<-release
		return nil
	}

	s := h.scheduler(scheduler.Options{Interval: interval, RunOnStart: true})
	require.NoError(t, s.Start(context.Background()))
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop never returned")
	}

	r := h.waitCycle(t)
	assert.Equal(t, 1, r.Succeeded())
	assert.Zero(t, h.clock.ActiveTickers())
	assert.False(t, s.Running())

	// Stopping again is harmless.
	s.Stop()
}

func TestStart_ContextCancelStopsTicking(t *testing.T) {
	h := newHarness(t)
	h.host(t, "web-1")

	ctx, cancel := context.WithCancel(context.Background())
	s := h.scheduler(scheduler.Options{Interval: interval})
	require.NoError(t, s.Start(ctx))
	require.True(t, h.clock.WaitForTicker(time.Second))

	cancel()
	require.Eventually(t, func() bool { return h.clock.ActiveTickers() == 0 }, 2*time.Second, 5*time.Millisecond)

	h.clock.Advance(interval)
	select {
	case <-h.cycles:
		t.Fatal("cycle ran after cancel")
	case <-time.After(50 * time.Millisecond):
	}
	s.Stop()
}

func TestStart_RestartAfterStop(t *testing.T) {
	h := newHarness(t)
	h.host(t, "web-1")
	s := h.scheduler(scheduler.Options{Interval: interval, RunOnStart: true})

	require.NoError(t, s.Start(context.Background()))
	h.waitCycle(t)
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	h.waitCycle(t)
	s.Stop()
}
