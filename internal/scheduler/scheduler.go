package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/loadwatch/internal/clock"
	"github.com/rileyhilliard/loadwatch/internal/collector"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/logger"
	"github.com/rileyhilliard/loadwatch/internal/parsers"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/telemetry"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
)

// Defaults applied by New.
const (
	DefaultInterval        = 300 * time.Second
	DefaultRetentionWindow = 30 * 24 * time.Hour
	DefaultConcurrency     = 8
)

var (
	// ErrCycleInProgress is returned by RunCycle while another cycle runs.
	ErrCycleInProgress = stderrors.New("a collection cycle is already running")

	// ErrAlreadyStarted is returned by Start on a running scheduler.
	ErrAlreadyStarted = stderrors.New("scheduler already started")
)

// Store is the part of the store a cycle touches.
type Store interface {
	ListHosts(ctx context.Context) ([]store.Host, error)
	Append(ctx context.Context, sample *store.Sample) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Collector fetches raw command output from one host.
type Collector interface {
	Collect(ctx context.Context, name string, target sshutil.Target) (collector.RawOutputs, error)
}

// Options configures a Scheduler. Zero values take the package defaults.
type Options struct {
	Interval        time.Duration
	RetentionWindow time.Duration

	// Concurrency caps hosts collected at the same time.
	Concurrency int

	// RunOnStart runs a cycle as soon as Start is called.
	RunOnStart bool

	Clock   clock.Clock
	Logger  logger.Logger
	Metrics *telemetry.Metrics

	// OnCycle, if set, is called with every finished cycle's report.
	OnCycle func(CycleReport)

	// NewID generates cycle IDs. Defaults to random UUIDs.
	NewID func() string
}

// Scheduler runs collection cycles on a fixed interval.
type Scheduler struct {
	store     Store
	collector Collector
	opts      Options
	log       logger.Logger

	running atomic.Bool
	cycles  sync.WaitGroup

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a Scheduler. It does nothing until Start or RunCycle.
func New(st Store, c Collector, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RetentionWindow <= 0 {
		opts.RetentionWindow = DefaultRetentionWindow
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Scheduler{store: st, collector: c, opts: opts, log: opts.Logger}
}

// Start begins ticking every Interval, measured from cycle start. Cycles
// run on their own goroutine; a tick that arrives while a cycle is still in
// flight is skipped, never queued. Cancelling ctx aborts the in-flight
// cycle's collections and stops the ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return ErrAlreadyStarted
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	ticker := s.opts.Clock.NewTicker(s.opts.Interval)

	s.log.Info("scheduler started: every %s, retention %s, %d concurrent hosts",
		s.opts.Interval, s.opts.RetentionWindow, s.opts.Concurrency)
	go s.loop(ctx, ticker, s.stop, s.done)
	return nil
}

// Stop halts the ticker and waits for the in-flight cycle, if any, to
// finish. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.cycles.Wait()
	s.log.Info("scheduler stopped")
}

// Running reports whether a cycle is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(ctx context.Context, ticker clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	if s.opts.RunOnStart {
		s.trigger(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C():
			s.trigger(ctx)
		}
	}
}

// trigger starts a cycle in the background unless one is already running.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous cycle still running, skipping this tick")
		s.opts.Metrics.CycleSkipped()
		return
	}

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		s.cycle(ctx)
	}()
}

// RunCycle runs one cycle synchronously and returns its report. It returns
// ErrCycleInProgress if a scheduled cycle is running at the same time.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	return s.cycle(ctx), nil
}

// cycle runs a cycle the caller has claimed. OnCycle is called after the
// claim is released.
func (s *Scheduler) cycle(ctx context.Context) *CycleReport {
	report := func() *CycleReport {
		defer s.running.Store(false)
		return s.runCycle(ctx)
	}()
	if s.opts.OnCycle != nil {
		s.opts.OnCycle(*report)
	}
	return report
}

func (s *Scheduler) runCycle(ctx context.Context) *CycleReport {
	report := &CycleReport{ID: s.opts.NewID(), StartedAt: s.opts.Clock.Now()}
	log := s.log.With("cycle_id", report.ID)
	log.Debug("cycle started")

	// Snapshot: hosts added from here on wait for the next cycle.
	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		report.ListErr = errors.WrapWithCode(err, errors.ErrStore,
			"Couldn't read the host registry",
			"Check the database file is readable.")
		log.Error("list hosts: %v", err)
	}
	s.opts.Metrics.HostsListed(len(hosts))

	report.Hosts = s.collectAll(ctx, log, hosts)

	// Retention runs only after every host attempt has returned.
	report.Cutoff = s.opts.Clock.Now().Add(-s.opts.RetentionWindow)
	report.Pruned, report.PruneErr = s.prune(ctx, report.Cutoff)
	s.opts.Metrics.Pruned(report.Pruned, report.PruneErr)
	if report.PruneErr != nil {
		log.Error("retention sweep failed: %v", report.PruneErr)
	} else if report.Pruned > 0 {
		log.Info("pruned %d samples older than %s", report.Pruned, report.Cutoff.Format(time.RFC3339))
	}

	report.FinishedAt = s.opts.Clock.Now()
	s.opts.Metrics.CycleFinished(report.Duration(), report.FinishedAt)
	log.Info("cycle finished: %d/%d hosts ok, %d pruned, took %s",
		report.Succeeded(), len(report.Hosts), report.Pruned, report.Duration().Round(time.Millisecond))
	return report
}

func (s *Scheduler) collectAll(ctx context.Context, log logger.Logger, hosts []store.Host) []HostResult {
	results := make([]HostResult, len(hosts))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, h := range hosts {
		g.Go(func() error {
			results[i] = s.collectHost(ctx, log.With("host", h.Name), h)
			s.opts.Metrics.HostCollected(results[i].Result)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// collectHost runs collect, parse and append for one host. Every failure,
// a panic included, ends up in the returned result.
func (s *Scheduler) collectHost(ctx context.Context, log logger.Logger, h store.Host) (res HostResult) {
	res = HostResult{Host: h.Name, HostID: h.ID}
	start := s.opts.Clock.Now()
	defer func() {
		res.Took = s.opts.Clock.Now().Sub(start)
	}()
	defer func() {
		if r := recover(); r != nil {
			res.Result = telemetry.ResultPanic
			res.Err = fmt.Errorf("panic while collecting %s: %v", h.Name, r)
			res.Sample = nil
			log.Error("%v", res.Err)
		}
	}()

	raw, err := s.collector.Collect(ctx, h.Name, targetFor(h))
	if err != nil {
		res.Result = resultForCollectionError(err)
		res.Err = err
		log.Warn("collection failed: %v", err)
		return res
	}

	sample, err := buildSample(h.ID, raw)
	if err != nil {
		res.Result = telemetry.ResultParse
		res.Err = errors.WrapWithCode(err, errors.ErrParse,
			fmt.Sprintf("Couldn't parse output from '%s'", h.Name),
			"Check ssh.load_command and ssh.memory_command match the host's platform.")
		log.Warn("discarding sample: %v", err)
		return res
	}

	if err := s.store.Append(ctx, sample); err != nil {
		res.Result = telemetry.ResultStore
		res.Err = errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't save the sample for '%s'", h.Name),
			"Check disk space and that database.path is writable.")
		log.Error("append sample: %v", err)
		return res
	}

	res.Result = telemetry.ResultOK
	res.Sample = sample
	log.Info("collected load %.2f %.2f %.2f, memory %s",
		*sample.Load1, *sample.Load5, *sample.Load15, memoryString(sample))
	return res
}

func (s *Scheduler) prune(ctx context.Context, cutoff time.Time) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during retention sweep: %v", r)
		}
	}()

	n, err = s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrStore,
			"Retention sweep failed",
			"Old samples will be retried on the next cycle.")
	}
	return n, nil
}

// buildSample parses both outputs. Any parse failure discards the whole
// sample; a missing memory summary leaves the memory fields unset.
func buildSample(hostID int64, raw collector.RawOutputs) (*store.Sample, error) {
	load, err := parsers.ParseLoad(raw.Load)
	if err != nil {
		return nil, err
	}
	mem, err := parsers.ParseMemory(raw.Memory)
	if err != nil {
		return nil, err
	}

	sample := &store.Sample{
		HostID:    hostID,
		Timestamp: raw.CollectedAt,
		Load1:     store.Float(load.Load1),
		Load5:     store.Float(load.Load5),
		Load15:    store.Float(load.Load15),
	}
	if mem.Present {
		sample.UsedMemoryMB = store.Float(mem.UsedMB)
		sample.TotalMemoryMB = store.Float(mem.TotalMB)
	}
	return sample, nil
}

func targetFor(h store.Host) sshutil.Target {
	return sshutil.Target{
		Host:     h.Address,
		Port:     h.Port,
		User:     h.Username,
		Password: h.Password,
	}
}

func resultForCollectionError(err error) string {
	var ce *collector.CollectionError
	if stderrors.As(err, &ce) && ce.Stage != collector.StageConnect {
		return telemetry.ResultCommand
	}
	return telemetry.ResultConnect
}

func memoryString(sample *store.Sample) string {
	if sample.UsedMemoryMB == nil || sample.TotalMemoryMB == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.0f/%.0f MB", *sample.UsedMemoryMB, *sample.TotalMemoryMB)
}
