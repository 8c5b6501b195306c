package metrics

import (
	"math"
	"runtime"
	"runtime/debug"
)

// heapUsage returns the in-use heap and the heap capacity.
//
// The capacity is the soft memory limit when one is set (GOMEMLIMIT or
// debug.SetMemoryLimit), otherwise the heap memory obtained from the OS.
func heapUsage() (used, capacity uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	capacity = ms.HeapSys
	// a negative input only reads the current limit
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		capacity = uint64(limit)
	}
	return ms.HeapInuse, capacity
}
