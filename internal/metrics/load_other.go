//go:build !linux

package metrics

func loadAverage() (float64, error) {
	return 0, ErrLoadUnavailable
}
