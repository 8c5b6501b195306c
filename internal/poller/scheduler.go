package poller

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Scheduler decides when the next report attempt happens.
//
// Scheduler owns a single pending timer. At any instant there is at most one
// armed timer: the startup timer, the inter-poll timer, or none. Arming is a
// check-then-set under the scheduler mutex, so concurrent or repeated calls
// to [Scheduler.Start] and [Scheduler.ScheduleNext] never produce two
// overlapping timers.
//
// The delay after a successful attempt is the full interval; after a failed
// attempt it is half the interval. The backoff is a single step: repeated
// failures keep retrying at half the interval.
//
// Once [Scheduler.Stop] has been called the scheduler never arms a timer
// again, including from an attempt that was in flight when Stop ran.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	fire     func()
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64 // incremented on every arm and cancel; stale timer callbacks compare against it
	stopped bool
}

// NewScheduler creates a new [Scheduler].
//
// Parameters:
//   - interval: Delay between attempts after a success
//   - fire: Called (on the timer goroutine) each time a timer fires
//   - logger: Logger for scheduling decisions; nil disables logging
//
// Nothing is armed until [Scheduler.Start] is called.
func NewScheduler(interval time.Duration, fire func(), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		interval: interval,
		fire:     fire,
		logger:   logger,
	}
}

// Interval returns the delay used after a successful attempt.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// NextDelay returns the delay that follows an attempt with the given result.
func (s *Scheduler) NextDelay(failed bool) time.Duration {
	if failed {
		return s.interval / 2
	}
	return s.interval
}

// Start arms the first timer to fire after the given delay.
//
// Returns false without arming anything if a timer is already pending or the
// scheduler has been stopped.
func (s *Scheduler) Start(after time.Duration) bool {
	if !s.arm(after) {
		return false
	}
	s.logger.Debug("scheduled first request", "delay", after.String())
	return true
}

// ScheduleNext arms the timer for the attempt following a resolved one.
//
// Returns false without arming anything if a timer is already pending or the
// scheduler has been stopped.
func (s *Scheduler) ScheduleNext(failed bool) bool {
	delay := s.NextDelay(failed)
	if !s.arm(delay) {
		return false
	}

	if failed {
		s.logger.Warn("last request failed, scheduled next request sooner", "delay", delay.String())
	} else {
		s.logger.Debug("scheduled next request", "delay", delay.String())
	}
	return true
}

// Stop cancels the pending timer, if any, and prevents further arming.
//
// Returns true if a pending timer was cancelled. Returns false if no timer
// was pending: the scheduler was already stopped, or an attempt is in flight
// with nothing queued behind it. Stop is idempotent.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer == nil {
		return false
	}

	s.timer.Stop()
	s.timer = nil
	s.gen++
	return true
}

// Pending reports whether a timer is currently armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stopped reports whether [Scheduler.Stop] has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// arm sets the pending timer if none is pending and the scheduler is running.
func (s *Scheduler) arm(delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.timer != nil {
		return false
	}

	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.onFire(gen, delay)
	})
	return true
}

// onFire clears the pending timer and triggers the dispatch callback.
//
// A callback whose generation no longer matches was cancelled by Stop after
// the timer had already fired; it does nothing.
func (s *Scheduler) onFire(gen uint64, delay time.Duration) {
	s.mu.Lock()
	if s.stopped || gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.logger.Debug("executing next request now", "waited", delay.String())
	s.fire()
}
