package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/store"
)

const maxBodyBytes = 1 << 20

type serverRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	Port     int    `json:"port"`
}

// serverPatch is a partial update; nil fields keep their stored value.
type serverPatch struct {
	Name     *string `json:"name"`
	Host     *string `json:"host"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Port     *int    `json:"port"`
}

func (p serverPatch) apply(h *store.Host) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Host != nil {
		h.Address = *p.Host
	}
	if p.Username != nil {
		h.Username = *p.Username
	}
	if p.Port != nil {
		h.Port = *p.Port
	}
	if p.Password != nil && *p.Password != "" {
		h.Password = *p.Password
	}
}

type serverResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type metricResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	CPULoad1m     *float64  `json:"cpu_load_1m"`
	CPULoad5m     *float64  `json:"cpu_load_5m"`
	CPULoad15m    *float64  `json:"cpu_load_15m"`
	MemoryUsedMB  *float64  `json:"memory_used_mb"`
	MemoryTotalMB *float64  `json:"memory_total_mb"`
}

func toServerResponse(h *store.Host) serverResponse {
	return serverResponse{
		ID:        h.ID,
		Name:      h.Name,
		Host:      h.Address,
		Port:      h.Port,
		Username:  h.Username,
		CreatedAt: h.CreatedAt,
	}
}

func toMetricResponse(s store.Sample) metricResponse {
	return metricResponse{
		Timestamp:     s.Timestamp,
		CPULoad1m:     s.Load1,
		CPULoad5m:     s.Load5,
		CPULoad15m:    s.Load15,
		MemoryUsedMB:  s.UsedMemoryMB,
		MemoryTotalMB: s.TotalMemoryMB,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("health check: database unreachable: %v", err)
		Unavailable(w, "database unreachable", r.URL.Path)
		return
	}
	body := map[string]string{"status": "ok"}
	if s.opts.Version != "" {
		body["version"] = s.opts.Version
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.store.ListHosts(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]serverResponse, 0, len(hosts))
	for i := range hosts {
		out = append(out, toServerResponse(&hosts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req serverRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		BadRequest(w, "password is required", r.URL.Path)
		return
	}

	h := &store.Host{
		Name:     req.Name,
		Address:  req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	}
	if err := s.store.AddHost(r.Context(), h); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.log.Info("registered host %s (%s:%d)", h.Name, h.Address, h.Port)
	w.Header().Set("Location", fmt.Sprintf("/servers/%d", h.ID))
	writeJSON(w, http.StatusCreated, toServerResponse(h))
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h, err := s.store.GetHost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toServerResponse(h))
}

// handleUpdateServer merges the supplied fields onto the stored host.
// An empty password keeps the stored one.
func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h, err := s.store.GetHost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var patch serverPatch
	if err := decodeBody(w, r, &patch); err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	patch.apply(h)
	if err := s.store.UpdateHost(r.Context(), h); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.log.Info("updated host %s", h.Name)
	writeJSON(w, http.StatusOK, toServerResponse(h))
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.RemoveHost(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.log.Info("removed host %d and its samples", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServerMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.GetHost(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	q, err := s.parseRangeQuery(r)
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	q.HostID = id

	samples, err := s.store.QueryRange(r.Context(), q)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]metricResponse, 0, len(samples))
	for _, sample := range samples {
		out = append(out, toMetricResponse(sample))
	}
	writeJSON(w, http.StatusOK, out)
}

// parseRangeQuery reads start, end and limit. Limits above MaxLimit are
// clamped rather than rejected.
func (s *Server) parseRangeQuery(r *http.Request) (store.RangeQuery, error) {
	values := r.URL.Query()
	q := store.RangeQuery{Limit: s.opts.DefaultLimit}

	if v := values.Get("start"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return q, fmt.Errorf("start: %w", err)
		}
		q.Start = &t
	}
	if v := values.Get("end"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return q, fmt.Errorf("end: %w", err)
		}
		q.End = &t
	}
	if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
		return q, fmt.Errorf("start must not be after end")
	}

	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("limit: %q is not a number", v)
		}
		if n < 1 {
			return q, fmt.Errorf("limit must be at least 1")
		}
		q.Limit = min(n, s.opts.MaxLimit)
	}
	return q, nil
}

// parseTime accepts RFC 3339 timestamps, or a bare date taken as UTC midnight.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q is not an RFC 3339 timestamp", v)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		BadRequest(w, fmt.Sprintf("server id %q is not a positive integer", raw), r.URL.Path)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		NotFound(w, "Server not found", r.URL.Path)
	case stderrors.Is(err, store.ErrAlreadyExists):
		Conflict(w, "Server exists", r.URL.Path)
	case stderrors.As(err, new(*store.ValidationError)):
		BadRequest(w, err.Error(), r.URL.Path)
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	InternalError(w, "storage error", r.URL.Path)
}
