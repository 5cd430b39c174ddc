package store

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a host or sample that cannot be stored as given.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// DefaultPort is used for hosts registered without a port.
const DefaultPort = 22

// Host is a registered collection target. Name is unique in the registry.
type Host struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a host needs before it can be stored.
// A zero port is replaced with DefaultPort.
func (h *Host) Validate() error {
	h.Name = strings.TrimSpace(h.Name)
	h.Address = strings.TrimSpace(h.Address)
	h.Username = strings.TrimSpace(h.Username)

	if h.Name == "" {
		return invalidf("host name is required")
	}
	if h.Address == "" {
		return invalidf("host %q: address is required", h.Name)
	}
	if h.Port == 0 {
		h.Port = DefaultPort
	}
	if h.Port < 1 || h.Port > 65535 {
		return invalidf("host %q: port %d out of range", h.Name, h.Port)
	}
	if h.Username == "" {
		return invalidf("host %q: username is required", h.Name)
	}
	return nil
}

// Sample is one timestamped set of readings for one host.
// Nil fields were not reported by the host.
type Sample struct {
	ID            int64     `json:"id"`
	HostID        int64     `json:"host_id"`
	Timestamp     time.Time `json:"timestamp"`
	Load1         *float64  `json:"load_1"`
	Load5         *float64  `json:"load_5"`
	Load15        *float64  `json:"load_15"`
	UsedMemoryMB  *float64  `json:"used_memory_mb"`
	TotalMemoryMB *float64  `json:"total_memory_mb"`
}

// Validate enforces 0 <= used <= total when both memory figures are present.
func (s *Sample) Validate() error {
	if s.HostID <= 0 {
		return invalidf("sample has no host")
	}
	if s.Timestamp.IsZero() {
		return invalidf("sample has no timestamp")
	}
	for name, v := range map[string]*float64{
		"load_1": s.Load1, "load_5": s.Load5, "load_15": s.Load15,
		"used_memory_mb": s.UsedMemoryMB, "total_memory_mb": s.TotalMemoryMB,
	} {
		if v != nil && *v < 0 {
			return invalidf("sample %s is negative", name)
		}
	}
	if s.UsedMemoryMB != nil && s.TotalMemoryMB != nil && *s.UsedMemoryMB > *s.TotalMemoryMB {
		return invalidf("sample used memory %.1f MB exceeds total %.1f MB", *s.UsedMemoryMB, *s.TotalMemoryMB)
	}
	return nil
}

// MemoryPercent returns used/total as a percentage, or false when either
// figure is missing or total is zero.
func (s *Sample) MemoryPercent() (float64, bool) {
	if s.UsedMemoryMB == nil || s.TotalMemoryMB == nil || *s.TotalMemoryMB == 0 {
		return 0, false
	}
	return *s.UsedMemoryMB / *s.TotalMemoryMB * 100, true
}

// Float returns a pointer to v, for filling Sample fields.
func Float(v float64) *float64 {
	return &v
}

// RangeQuery selects samples for one host.
type RangeQuery struct {
	HostID int64

	// Start and End bound the timestamp inclusively. Nil is open-ended.
	Start *time.Time
	End   *time.Time

	// Limit caps the result to the most recent Limit samples.
	// Zero or less means DefaultQueryLimit.
	Limit int
}

// DefaultQueryLimit is one day of samples at the default five minute interval.
const DefaultQueryLimit = 288

// HostSummary pairs a host with its newest sample, if any.
type HostSummary struct {
	Host        Host
	Latest      *Sample
	SampleCount int64
}
