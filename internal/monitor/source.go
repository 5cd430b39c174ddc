package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/store"
)

// Source is the read side of the store the dashboard needs.
type Source interface {
	Summaries(ctx context.Context) ([]store.HostSummary, error)
	QueryRange(ctx context.Context, q store.RangeQuery) ([]store.Sample, error)
}

// HostView is one host's card data.
type HostView struct {
	Host    store.Host
	Latest  *store.Sample
	Samples int64

	// Load and Memory are oldest first. Memory holds used percentages and
	// skips samples without a memory reading.
	Load   []float64
	Memory []float64
}

// load1 returns the latest 1-minute load, or -1 when unknown.
func (v HostView) load1() float64 {
	if v.Latest == nil || v.Latest.Load1 == nil {
		return -1
	}
	return *v.Latest.Load1
}

func (v HostView) memoryPercent() float64 {
	if v.Latest == nil {
		return -1
	}
	if pct, ok := v.Latest.MemoryPercent(); ok {
		return pct
	}
	return -1
}

// Snapshot is everything one refresh read from the store.
type Snapshot struct {
	Hosts []HostView
	Taken time.Time
}

// LoadSnapshot reads every host's summary plus its last history samples.
func LoadSnapshot(ctx context.Context, src Source, history int) (Snapshot, error) {
	summaries, err := src.Summaries(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read host summaries: %w", err)
	}

	snap := Snapshot{Hosts: make([]HostView, 0, len(summaries)), Taken: time.Now()}
	for _, sum := range summaries {
		view := HostView{Host: sum.Host, Latest: sum.Latest, Samples: sum.SampleCount}
		if sum.SampleCount > 0 && history > 0 {
			samples, err := src.QueryRange(ctx, store.RangeQuery{HostID: sum.Host.ID, Limit: history})
			if err != nil {
				return Snapshot{}, fmt.Errorf("read history for %s: %w", sum.Host.Name, err)
			}
			for _, s := range samples {
				if s.Load1 != nil {
					view.Load = append(view.Load, *s.Load1)
				}
				if pct, ok := s.MemoryPercent(); ok {
					view.Memory = append(view.Memory, pct)
				}
			}
		}
		snap.Hosts = append(snap.Hosts, view)
	}
	return snap, nil
}
