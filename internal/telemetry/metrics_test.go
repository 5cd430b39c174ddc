package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsCycle(t *testing.T) {
	m := New()

	m.HostsListed(3)
	m.HostCollected(ResultOK)
	m.HostCollected(ResultOK)
	m.HostCollected(ResultConnect)
	m.Pruned(5, nil)
	m.CycleFinished(2*time.Second, time.Unix(1700000000, 0))
	m.CycleSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cyclesSkipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.hosts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.hostCollections.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hostCollections.WithLabelValues(ResultConnect)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.hostCollections.WithLabelValues(ResultParse)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.samplesWritten))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.samplesPruned))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastCycle))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))
}

func TestMetrics_PruneFailure(t *testing.T) {
	m := New()
	m.Pruned(10, errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pruneFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.samplesPruned))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.HostsListed(1)
	m.HostCollected(ResultOK)
	m.Pruned(1, nil)
	m.CycleFinished(time.Second, time.Now())
	m.CycleSkipped()
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.HostCollected(ResultOK)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `loadwatch_host_collections_total{result="ok"} 1`)
	assert.Contains(t, string(body), "loadwatch_samples_written_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
