// Package sysmem sizes the worker pool against available memory.
package sysmem

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/genpipe/errors"
)

const (
	// bytesPerWorker approximates the peak heap of one invocation over a
	// type-checked package.
	bytesPerWorker = 512 << 20
	// reservedBytes is left for the loader, the editor and the OS.
	reservedBytes = 1 << 30
)

const gib = 1 << 30

// Memory is a snapshot of system memory in bytes.
type Memory struct {
	Total     uint64
	Available uint64
}

// UsedPercent returns the share of memory in use.
func (m Memory) UsedPercent() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Total-m.Available) / float64(m.Total) * 100
}

// Stats reads current memory usage.
func Stats() (Memory, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return Memory{}, errors.Wrap(err, "failed to get memory stats")
	}
	return Memory{Total: v.Total, Available: v.Available}, nil
}

// RecommendWorkers returns how many workers fit in availableBytes. A
// non-positive requested count means one per CPU. The result never exceeds
// the effective request and is at least 1.
func RecommendWorkers(requested int, availableBytes uint64) int {
	if requested <= 0 {
		requested = runtime.NumCPU()
	}
	if availableBytes <= reservedBytes {
		return 1
	}

	fit := int((availableBytes - reservedBytes) / bytesPerWorker)
	switch {
	case fit < 1:
		return 1
	case fit < requested:
		return fit
	default:
		return requested
	}
}

// Check compares a configured worker count against current memory. It
// returns an empty warning when the count fits or memory cannot be read.
func Check(requested int) (recommended int, warning string) {
	m, err := Stats()
	if err != nil {
		return requested, ""
	}
	return check(requested, m)
}

func check(requested int, m Memory) (int, string) {
	recommended := RecommendWorkers(requested, m.Available)
	if requested <= 0 || requested <= recommended {
		return recommended, ""
	}
	return recommended, fmt.Sprintf(
		"max_workers (%d) exceeds recommended (%d) for available memory (%.1f/%.1fGB)",
		requested, recommended, float64(m.Total-m.Available)/gib, float64(m.Total)/gib)
}
