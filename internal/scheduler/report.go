package scheduler

import (
	"time"

	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/telemetry"
)

// HostResult is the outcome of one host's collect, parse and append.
type HostResult struct {
	Host   string
	HostID int64

	// Result is one of the telemetry.Result* values.
	Result string

	// Err is nil when Result is telemetry.ResultOK.
	Err error

	// Sample is the appended sample, set only on success.
	Sample *store.Sample

	Took time.Duration
}

// OK reports whether a sample was written for the host.
func (r HostResult) OK() bool {
	return r.Result == telemetry.ResultOK
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	// ListErr is set when the host registry could not be read. The cycle
	// still runs retention.
	ListErr error

	Hosts []HostResult

	// Cutoff is the retention threshold; samples before it were deleted.
	Cutoff   time.Time
	Pruned   int64
	PruneErr error
}

// Duration is how long the cycle took on the scheduler's clock.
func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded counts hosts that got a sample written.
func (r *CycleReport) Succeeded() int {
	n := 0
	for _, h := range r.Hosts {
		if h.OK() {
			n++
		}
	}
	return n
}

// Failed counts hosts that did not.
func (r *CycleReport) Failed() int {
	return len(r.Hosts) - r.Succeeded()
}
