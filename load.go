package statusreporter

import (
	"errors"
	"log/slog"

	"github.com/jpalmerr/statusreporter/internal/metrics"
	"github.com/jpalmerr/statusreporter/internal/poller"
)

// LoadSource provides the load sample sent with every report.
//
// Sample is called once per attempt, from the attempt's goroutine. When it
// returns an error the returned [Load] is still reported, so implementations
// should fill in whatever they could measure. Non-finite and negative values
// are reported as 0.
type LoadSource interface {
	Sample() (Load, error)
}

// LoadSourceFunc adapts a function to a [LoadSource].
type LoadSourceFunc func() (Load, error)

// Sample calls f.
func (f LoadSourceFunc) Sample() (Load, error) {
	return f()
}

// SystemLoadSource returns the default [LoadSource].
//
// CPU is the host's 1-minute load average divided by the logical CPU count
// (Linux only, 0 elsewhere). RAM is the process's in-use heap divided by its
// soft memory limit, or by the heap reserved from the OS when no limit is set.
func SystemLoadSource() LoadSource {
	return systemLoad{src: metrics.NewSystemSource()}
}

type systemLoad struct {
	src *metrics.SystemSource
}

func (s systemLoad) Sample() (Load, error) {
	sample, err := s.src.Sample()
	return Load{CPU: sample.CPU, RAM: sample.RAM}, err
}

// sampleLoad reads src and sanitizes the result for the payload.
func sampleLoad(src LoadSource, logger *slog.Logger) poller.Load {
	load, err := src.Sample()
	if err != nil {
		if errors.Is(err, metrics.ErrLoadUnavailable) {
			logger.Debug("load sample incomplete", "error", err.Error())
		} else {
			logger.Warn("load sample incomplete", "error", err.Error())
		}
	}
	return poller.Load{
		CPU: metrics.Clamp(load.CPU),
		RAM: metrics.Clamp(load.RAM),
	}
}
