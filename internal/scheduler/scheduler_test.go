// internal/scheduler/scheduler_test.go
package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	s := New()
	if err := s.Schedule("not a cron expression", func() {}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestScheduleAcceptsDescriptors(t *testing.T) {
	s := New()
	for _, spec := range []string{"@hourly", "@every 30m", "*/5 * * * *"} {
		if err := s.Schedule(spec, func() {}); err != nil {
			t.Errorf("Schedule(%q) returned error: %v", spec, err)
		}
	}
}

func TestSchedulerFiresJob(t *testing.T) {
	s := New()

	var fires atomic.Int32
	// Six fields: fire every second.
	if err := s.Schedule("* * * * * *", func() {
		fires.Add(1)
	}); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	s.Start()
	defer s.Stop()

	// Wait up to 2.5 seconds for at least one fire
	deadline := time.After(2500 * time.Millisecond)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-deadline:
			t.Fatalf("job did not fire within deadline, fires=%d", fires.Load())
		case <-tick.C:
			if fires.Load() >= 1 {
				return
			}
		}
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	s := New()

	var fires atomic.Int32
	if err := s.Schedule("* * * * * *", func() {
		fires.Add(1)
		// Hold the slot past the observation window so every
		// later tick hits the overlap guard.
		time.Sleep(5 * time.Second)
	}); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	s.Start()
	time.Sleep(3200 * time.Millisecond)
	s.Stop()

	if got := fires.Load(); got != 1 {
		t.Errorf("expected exactly 1 fire with overlap guard, got %d", got)
	}
}
