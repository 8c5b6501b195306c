//go:build linux

package metrics

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// sysinfo load averages are fixed point with 16 fractional bits.
const loadShift = 16

func loadAverage() (float64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return float64(info.Loads[0]) / float64(uint64(1)<<loadShift), nil
}
