package poller

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started is a safe no-op that reports nothing was cancelled.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := NewScheduler(time.Minute, func() {}, testLogger())

	if scheduler.Stop() {
		t.Error("Stop() = true, want false when no timer is pending")
	}
}

// TestScheduler_StopCancelsPendingTimer verifies that Stop() cancels the
// pending timer and returns true exactly once.
func TestScheduler_StopCancelsPendingTimer(t *testing.T) {
	var fired atomic.Int32
	scheduler := NewScheduler(time.Minute, func() { fired.Add(1) }, testLogger())

	if !scheduler.Start(50 * time.Millisecond) {
		t.Fatal("Start() = false, want true")
	}
	if !scheduler.Pending() {
		t.Fatal("Pending() = false after Start, want true")
	}

	if !scheduler.Stop() {
		t.Error("first Stop() = false, want true")
	}
	if scheduler.Stop() {
		t.Error("second Stop() = true, want false")
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("fire called %d times after Stop, want 0", got)
	}
}

// TestScheduler_StartTwice verifies that a second Start() while a timer is
// pending does not arm a second timer.
func TestScheduler_StartTwice(t *testing.T) {
	var fired atomic.Int32
	scheduler := NewScheduler(time.Minute, func() { fired.Add(1) }, testLogger())
	defer scheduler.Stop()

	if !scheduler.Start(20 * time.Millisecond) {
		t.Fatal("first Start() = false, want true")
	}
	if scheduler.Start(20 * time.Millisecond) {
		t.Error("second Start() = true, want false while a timer is pending")
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fire called %d times, want 1", got)
	}
}

// TestScheduler_ScheduleNextTwice verifies that calling ScheduleNext twice
// in succession without an intervening fire arms only one timer.
func TestScheduler_ScheduleNextTwice(t *testing.T) {
	var fired atomic.Int32
	scheduler := NewScheduler(40*time.Millisecond, func() { fired.Add(1) }, testLogger())
	defer scheduler.Stop()

	if !scheduler.ScheduleNext(false) {
		t.Fatal("first ScheduleNext() = false, want true")
	}
	if scheduler.ScheduleNext(true) {
		t.Error("second ScheduleNext() = true, want false while a timer is pending")
	}

	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fire called %d times, want 1", got)
	}
}

// TestScheduler_ConcurrentScheduleNext verifies the single pending timer
// guarantee holds under concurrent callers. Run with -race.
func TestScheduler_ConcurrentScheduleNext(t *testing.T) {
	var fired atomic.Int32
	scheduler := NewScheduler(30*time.Millisecond, func() { fired.Add(1) }, testLogger())
	defer scheduler.Stop()

	var armed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(failed bool) {
			defer wg.Done()
			if scheduler.ScheduleNext(failed) {
				armed.Add(1)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if got := armed.Load(); got != 1 {
		t.Errorf("ScheduleNext armed %d timers, want 1", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fire called %d times, want 1", got)
	}
}

// TestScheduler_NextDelay verifies the full interval after success and the
// halved interval after failure.
func TestScheduler_NextDelay(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		failed   bool
		want     time.Duration
	}{
		{"success uses full interval", 30 * time.Second, false, 30 * time.Second},
		{"failure halves interval", 30 * time.Second, true, 15 * time.Second},
		{"one second success", time.Second, false, time.Second},
		{"one second failure", time.Second, true, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewScheduler(tt.interval, func() {}, testLogger())
			if got := scheduler.NextDelay(tt.failed); got != tt.want {
				t.Errorf("NextDelay(%v) = %v, want %v", tt.failed, got, tt.want)
			}
		})
	}
}

// TestScheduler_RepeatedFailuresKeepHalfInterval verifies the backoff is a
// single step and does not shrink further on consecutive failures.
func TestScheduler_RepeatedFailuresKeepHalfInterval(t *testing.T) {
	scheduler := NewScheduler(time.Second, func() {}, testLogger())

	for i := 0; i < 5; i++ {
		if got := scheduler.NextDelay(true); got != 500*time.Millisecond {
			t.Fatalf("failure %d: NextDelay = %v, want 500ms", i+1, got)
		}
	}
}

// TestScheduler_FireClearsPendingTimer verifies that a fired timer clears
// itself before the callback runs, so the callback can arm the next one.
func TestScheduler_FireClearsPendingTimer(t *testing.T) {
	done := make(chan bool, 1)
	var scheduler *Scheduler
	scheduler = NewScheduler(time.Minute, func() {
		done <- scheduler.Pending()
	}, testLogger())
	defer scheduler.Stop()

	scheduler.Start(0)

	select {
	case pending := <-done:
		if pending {
			t.Error("Pending() = true inside fire callback, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

// TestScheduler_StopDuringFirePreventsRearm verifies that a stop issued while
// an attempt is in flight returns false and blocks the follow-up ScheduleNext.
func TestScheduler_StopDuringFirePreventsRearm(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	rearmed := make(chan bool, 1)

	var scheduler *Scheduler
	scheduler = NewScheduler(10*time.Millisecond, func() {
		close(inFlight)
		<-release
		rearmed <- scheduler.ScheduleNext(false)
	}, testLogger())

	scheduler.Start(0)
	<-inFlight

	if scheduler.Stop() {
		t.Error("Stop() during dispatch = true, want false")
	}
	close(release)

	select {
	case ok := <-rearmed:
		if ok {
			t.Error("ScheduleNext after Stop = true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("fire callback did not complete")
	}

	if scheduler.Pending() {
		t.Error("Pending() = true after stop, want false")
	}
	if !scheduler.Stopped() {
		t.Error("Stopped() = false, want true")
	}
}

// TestScheduler_StartAfterStop verifies that Start is a no-op once stopped.
func TestScheduler_StartAfterStop(t *testing.T) {
	scheduler := NewScheduler(time.Minute, func() {}, testLogger())

	scheduler.Stop()
	if scheduler.Start(0) {
		t.Error("Start() after Stop = true, want false")
	}
}

// TestScheduler_ConcurrentStartStop verifies that Start and Stop racing each
// other never leave a timer pending after both return. Run with -race.
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		scheduler := NewScheduler(time.Minute, func() {}, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			scheduler.Start(time.Minute)
		}()
		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()
		wg.Wait()

		// whichever order they ran in, a final Stop leaves nothing pending
		scheduler.Stop()
		if scheduler.Pending() {
			t.Fatalf("iteration %d: timer still pending after Stop", i)
		}
	}
}
