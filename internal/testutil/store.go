package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/stretchr/testify/require"
)

// NewStore opens an in-memory store that is closed when the test ends.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// AddHost registers a host named name whose address is also name, so it
// lines up with MockDialer.AddHost(name).
func AddHost(t *testing.T, s *store.Store, name string) *store.Host {
	t.Helper()
	h := &store.Host{Name: name, Address: name, Username: "monitor", Password: "secret"}
	require.NoError(t, s.AddHost(context.Background(), h))
	return h
}

// AddSamples appends n samples for hostID, one per step starting at start,
// with load1 counting up from zero.
func AddSamples(t *testing.T, s *store.Store, hostID int64, start time.Time, step time.Duration, n int) []store.Sample {
	t.Helper()
	out := make([]store.Sample, 0, n)
	for i := 0; i < n; i++ {
		sample := store.Sample{
			HostID:        hostID,
			Timestamp:     start.Add(time.Duration(i) * step),
			Load1:         store.Float(float64(i)),
			Load5:         store.Float(float64(i) / 2),
			Load15:        store.Float(float64(i) / 4),
			UsedMemoryMB:  store.Float(4000),
			TotalMemoryMB: store.Float(16000),
		}
		require.NoError(t, s.Append(context.Background(), &sample))
		out = append(out, sample)
	}
	return out
}
