// Package testing provides SSH mock utilities for testing.
// It simulates Linux hosts whose load and memory can be set from tests.
package testing

import (
	"fmt"
	"sync"
)

// MockProc simulates the kernel counters a Linux host reports through
// /proc/loadavg and free(1).
type MockProc struct {
	mu sync.RWMutex

	load1, load5, load15 float64
	running, total       int
	lastPID              int

	memTotalKB, memUsedKB int64
	swapTotalKB           int64
	hideMemLine           bool
}

// NewMockProc creates an idle host with 16000 MB of memory, half in use.
func NewMockProc() *MockProc {
	return &MockProc{
		load1:       0.10,
		load5:       0.25,
		load15:      0.30,
		running:     1,
		total:       200,
		lastPID:     1234,
		memTotalKB:  16384000,
		memUsedKB:   8192000,
		swapTotalKB: 2097148,
	}
}

// SetLoad sets the 1, 5 and 15 minute load averages.
func (p *MockProc) SetLoad(load1, load5, load15 float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load1, p.load5, p.load15 = load1, load5, load15
}

// SetMemory sets total and used memory in kilobytes.
func (p *MockProc) SetMemory(totalKB, usedKB int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memTotalKB, p.memUsedKB = totalKB, usedKB
}

// HideMemLine makes free(1) omit the "Mem:" row, as some minimal
// userlands do.
func (p *MockProc) HideMemLine(hide bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hideMemLine = hide
}

// Loadavg renders /proc/loadavg.
func (p *MockProc) Loadavg() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("%.2f %.2f %.2f %d/%d %d\n",
		p.load1, p.load5, p.load15, p.running, p.total, p.lastPID)
}

// Free renders `free -k` in the procps-ng layout.
func (p *MockProc) Free() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	free := p.memTotalKB - p.memUsedKB
	if free < 0 {
		free = 0
	}
	buffCache := free / 2
	out := fmt.Sprintf("%15s %11s %11s %11s %11s %11s\n",
		"total", "used", "free", "shared", "buff/cache", "available")
	if !p.hideMemLine {
		out += fmt.Sprintf("%-7s %11d %11d %11d %11d %11d %11d\n",
			"Mem:", p.memTotalKB, p.memUsedKB, free-buffCache, int64(0), buffCache, free)
	}
	out += fmt.Sprintf("%-7s %11d %11d %11d\n", "Swap:", p.swapTotalKB, int64(0), p.swapTotalKB)
	return out
}
