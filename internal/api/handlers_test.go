package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/loadwatch/internal/api"
	"github.com/rileyhilliard/loadwatch/internal/logger"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/telemetry"
	"github.com/rileyhilliard/loadwatch/internal/testutil"
)

var epoch = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

type server struct {
	url   string
	store *store.Store
	log   *logger.BufferLogger
}

func newServer(t *testing.T, opts api.Options) *server {
	t.Helper()
	st := testutil.NewStore(t)
	log := logger.NewBufferLogger()
	opts.Logger = log
	srv := httptest.NewServer(api.New("127.0.0.1:0", st, opts).Handler())
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, store: st, log: log}
}

func (s *server) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, s.url+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

type serverJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
}

type metricJSON struct {
	Timestamp     time.Time `json:"timestamp"`
	CPULoad1m     *float64  `json:"cpu_load_1m"`
	CPULoad5m     *float64  `json:"cpu_load_5m"`
	CPULoad15m    *float64  `json:"cpu_load_15m"`
	MemoryUsedMB  *float64  `json:"memory_used_mb"`
	MemoryTotalMB *float64  `json:"memory_total_mb"`
}

func TestHealth(t *testing.T) {
	s := newServer(t, api.Options{Version: "1.2.3"})

	resp, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok", "version": "1.2.3"}, decode[map[string]string](t, body))
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := newServer(t, api.Options{})
	require.NoError(t, s.store.Close())

	resp, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, api.ProblemTypeUnavail, decode[api.Problem](t, body).Type)
}

func TestCreateServer(t *testing.T) {
	s := newServer(t, api.Options{})

	resp, body := s.do(t, http.MethodPost, "/servers", map[string]any{
		"name": "web-1", "host": "10.0.0.1", "username": "ops", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	got := decode[serverJSON](t, body)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "web-1", got.Name)
	assert.Equal(t, "10.0.0.1", got.Host)
	assert.Equal(t, 22, got.Port, "port defaults to 22")
	assert.Equal(t, "/servers/"+strconv.FormatInt(got.ID, 10), resp.Header.Get("Location"))
	assert.NotContains(t, string(body), "pw", "password never leaves the API")

	stored, err := s.store.GetHost(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, "pw", stored.Password)
}

func TestCreateServer_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantType   string
		wantDetail string
	}{
		{
			name:       "duplicate name",
			body:       map[string]any{"name": "taken", "host": "h", "username": "u", "password": "p"},
			wantType:   api.ProblemTypeConflict,
			wantDetail: "Server exists",
		},
		{
			name:       "missing host",
			body:       map[string]any{"name": "n", "username": "u", "password": "p"},
			wantType:   api.ProblemTypeBadRequest,
			wantDetail: "address is required",
		},
		{
			name:       "missing password",
			body:       map[string]any{"name": "n", "host": "h", "username": "u"},
			wantType:   api.ProblemTypeBadRequest,
			wantDetail: "password is required",
		},
		{
			name:       "bad port",
			body:       map[string]any{"name": "n", "host": "h", "username": "u", "password": "p", "port": 99999},
			wantType:   api.ProblemTypeBadRequest,
			wantDetail: "out of range",
		},
		{
			name:       "unknown field",
			body:       map[string]any{"name": "n", "host": "h", "username": "u", "password": "p", "shell": "bash"},
			wantType:   api.ProblemTypeBadRequest,
			wantDetail: "unknown field",
		},
		{
			name:       "not json",
			body:       "name=n",
			wantType:   api.ProblemTypeBadRequest,
			wantDetail: "invalid JSON body",
		},
		{
			name:       "empty body",
			body:       "",
			wantType:   api.ProblemTypeBadRequest,
			wantDetail: "request body is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, api.Options{})
			testutil.AddHost(t, s.store, "taken")

			resp, body := s.do(t, http.MethodPost, "/servers", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

			p := decode[api.Problem](t, body)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Contains(t, p.Detail, tt.wantDetail)

			hosts, err := s.store.ListHosts(context.Background())
			require.NoError(t, err)
			assert.Len(t, hosts, 1, "nothing new was stored")
		})
	}
}

func TestListServers(t *testing.T) {
	s := newServer(t, api.Options{})

	resp, body := s.do(t, http.MethodGet, "/servers", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	testutil.AddHost(t, s.store, "web-2")
	testutil.AddHost(t, s.store, "db-1")

	_, body = s.do(t, http.MethodGet, "/servers", nil)
	got := decode[[]serverJSON](t, body)
	require.Len(t, got, 2)
	assert.Equal(t, "db-1", got[0].Name)
	assert.Equal(t, "web-2", got[1].Name)
	assert.NotContains(t, string(body), "secret")
}

func TestGetServer(t *testing.T) {
	s := newServer(t, api.Options{})
	h := testutil.AddHost(t, s.store, "web-1")

	resp, body := s.do(t, http.MethodGet, "/servers/"+strconv.FormatInt(h.ID, 10), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "web-1", decode[serverJSON](t, body).Name)

	resp, _ = s.do(t, http.MethodGet, "/servers/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/servers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[api.Problem](t, body).Detail, "not a positive integer")
}

func TestUpdateServer(t *testing.T) {
	s := newServer(t, api.Options{})
	h := testutil.AddHost(t, s.store, "web-1")
	testutil.AddHost(t, s.store, "web-2")
	path := "/servers/" + strconv.FormatInt(h.ID, 10)

	resp, body := s.do(t, http.MethodPut, path, map[string]any{
		"name": "web-1", "host": "10.9.9.9", "username": "deploy", "port": 2222,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[serverJSON](t, body)
	assert.Equal(t, "10.9.9.9", got.Host)
	assert.Equal(t, 2222, got.Port)

	stored, err := s.store.GetHost(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, "deploy", stored.Username)
	assert.Equal(t, "secret", stored.Password, "empty password keeps the stored one")

	resp, body = s.do(t, http.MethodPut, path, map[string]any{"name": "web-2", "host": "h", "username": "u"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, api.ProblemTypeConflict, decode[api.Problem](t, body).Type)

	resp, _ = s.do(t, http.MethodPut, "/servers/999", map[string]any{"name": "x", "host": "h", "username": "u"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateServer_Partial(t *testing.T) {
	s := newServer(t, api.Options{})
	h := testutil.AddHost(t, s.store, "web-1")
	path := "/servers/" + strconv.FormatInt(h.ID, 10)

	resp, body := s.do(t, http.MethodPut, path, map[string]any{"port": 2222})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[serverJSON](t, body)
	assert.Equal(t, "web-1", got.Name)
	assert.Equal(t, "web-1", got.Host)
	assert.Equal(t, "monitor", got.Username)
	assert.Equal(t, 2222, got.Port)

	resp, body = s.do(t, http.MethodPut, path, map[string]any{"username": "deploy", "password": "rotated"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	stored, err := s.store.GetHost(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2222, stored.Port, "omitted port keeps the stored value")
	assert.Equal(t, "deploy", stored.Username)
	assert.Equal(t, "rotated", stored.Password)
	assert.Equal(t, "web-1", stored.Address)

	resp, _ = s.do(t, http.MethodPut, path, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPut, path, map[string]any{"color": "blue"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteServer_CascadesSamples(t *testing.T) {
	s := newServer(t, api.Options{})
	h := testutil.AddHost(t, s.store, "web-1")
	testutil.AddSamples(t, s.store, h.ID, epoch, time.Minute, 5)
	path := "/servers/" + strconv.FormatInt(h.ID, 10)

	resp, _ := s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	n, err := s.store.CountSamples(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	resp, _ = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerMetrics(t *testing.T) {
	s := newServer(t, api.Options{DefaultLimit: 5, MaxLimit: 8})
	h := testutil.AddHost(t, s.store, "web-1")
	testutil.AddSamples(t, s.store, h.ID, epoch, time.Minute, 10)
	base := "/servers/" + strconv.FormatInt(h.ID, 10) + "/metrics"

	at := func(i int) time.Time { return epoch.Add(time.Duration(i) * time.Minute) }
	ts := func(i int) string { return url.QueryEscape(at(i).Format(time.RFC3339)) }

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{name: "default limit keeps newest", query: "", want: []int{5, 6, 7, 8, 9}},
		{name: "explicit limit", query: "?limit=2", want: []int{8, 9}},
		{name: "limit clamped to max", query: "?limit=1000", want: []int{2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "inclusive range", query: "?start=" + ts(1) + "&end=" + ts(3), want: []int{1, 2, 3}},
		{name: "start only", query: "?start=" + ts(8), want: []int{8, 9}},
		{name: "end only with limit", query: "?end=" + ts(4) + "&limit=2", want: []int{3, 4}},
		{name: "no samples in range", query: "?start=" + ts(50), want: []int{}},
		{name: "bare date", query: "?end=2024-04-30", want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodGet, base+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			got := decode[[]metricJSON](t, body)
			require.Len(t, got, len(tt.want))
			for i, n := range tt.want {
				assert.True(t, at(n).Equal(got[i].Timestamp), "sample %d: got %s", i, got[i].Timestamp)
				require.NotNil(t, got[i].CPULoad1m)
				assert.InDelta(t, float64(n), *got[i].CPULoad1m, 1e-9)
				assert.InDelta(t, 4000.0, *got[i].MemoryUsedMB, 1e-9)
			}
		})
	}
}

func TestServerMetrics_NullMemory(t *testing.T) {
	s := newServer(t, api.Options{})
	h := testutil.AddHost(t, s.store, "web-1")
	require.NoError(t, s.store.Append(context.Background(), &store.Sample{
		HostID: h.ID, Timestamp: epoch, Load1: store.Float(1), Load5: store.Float(1), Load15: store.Float(1),
	}))

	_, body := s.do(t, http.MethodGet, "/servers/"+strconv.FormatInt(h.ID, 10)+"/metrics", nil)
	assert.Contains(t, string(body), `"memory_used_mb":null`)
	assert.Contains(t, string(body), `"memory_total_mb":null`)
}

func TestServerMetrics_Errors(t *testing.T) {
	s := newServer(t, api.Options{})
	h := testutil.AddHost(t, s.store, "web-1")
	base := "/servers/" + strconv.FormatInt(h.ID, 10) + "/metrics"

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantDetail string
	}{
		{"unknown host", "/servers/999/metrics", http.StatusNotFound, "Server not found"},
		{"bad id", "/servers/0/metrics", http.StatusBadRequest, "not a positive integer"},
		{"bad start", base + "?start=yesterday", http.StatusBadRequest, "start:"},
		{"bad end", base + "?end=soon", http.StatusBadRequest, "end:"},
		{"start after end", base + "?start=2024-05-02&end=2024-05-01", http.StatusBadRequest, "start must not be after end"},
		{"non-numeric limit", base + "?limit=ten", http.StatusBadRequest, "not a number"},
		{"zero limit", base + "?limit=0", http.StatusBadRequest, "at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, decode[api.Problem](t, body).Detail, tt.wantDetail)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := telemetry.New()
	m.HostCollected(telemetry.ResultOK)
	s := newServer(t, api.Options{Metrics: m})

	resp, body := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "loadwatch_samples_written_total 1")
}

func TestMetricsEndpoint_DisabledWithoutTelemetry(t *testing.T) {
	s := newServer(t, api.Options{})
	resp, _ := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(t, api.Options{})
	resp, _ := s.do(t, http.MethodPatch, "/servers", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestsAreLogged(t *testing.T) {
	s := newServer(t, api.Options{})
	s.do(t, http.MethodGet, "/health", nil)
	assert.True(t, s.log.Contains("debug", "GET /health -> 200"))
}
