// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// Scheduler runs jobs on cron schedules for watch mode. A job that is
// still running when its schedule fires again is skipped, not stacked.
type Scheduler struct {
	cron *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field, plus descriptors like
// @hourly and @every.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithParser(cronParser))}
}

// Schedule registers job to run per spec. The job is guarded against
// overlap with itself; independent jobs may still run concurrently.
func (s *Scheduler) Schedule(spec string, job func()) error {
	var running atomic.Bool
	_, err := s.cron.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			slog.Warn("previous run still active, skipping", "schedule", spec)
			return
		}
		defer running.Store(false)
		job()
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins the cron ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the ticker. Jobs already running are left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
