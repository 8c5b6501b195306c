// Package metrics samples the host and process load reported with every
// status report.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// ErrLoadUnavailable is returned when the platform has no load average.
var ErrLoadUnavailable = errors.New("load average not available on this platform")

// Sample is a point-in-time load measurement.
type Sample struct {
	// CPU is the 1-minute load average divided by the logical CPU count.
	CPU float64

	// RAM is the in-use heap divided by the heap capacity.
	RAM float64
}

// SystemSource samples the load of the host and the running process.
type SystemSource struct {
	loadAverage func() (float64, error)
	numCPU      func() int
	heap        func() (used, capacity uint64)
}

// NewSystemSource creates a [SystemSource] reading the real host.
func NewSystemSource() *SystemSource {
	return &SystemSource{
		loadAverage: loadAverage,
		numCPU:      runtime.NumCPU,
		heap:        heapUsage,
	}
}

// Sample takes a new measurement.
//
// When the load average cannot be read the returned sample still carries the
// RAM ratio, CPU is zero and the error describes why.
func (s *SystemSource) Sample() (Sample, error) {
	var sample Sample

	used, capacity := s.heap()
	if capacity > 0 {
		sample.RAM = Clamp(float64(used) / float64(capacity))
	}

	avg, err := s.loadAverage()
	if err != nil {
		return sample, fmt.Errorf("read load average: %w", err)
	}

	cpus := s.numCPU()
	if cpus < 1 {
		cpus = 1
	}
	sample.CPU = Clamp(avg / float64(cpus))

	return sample, nil
}

// Clamp maps NaN, infinities and negative values to zero.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
