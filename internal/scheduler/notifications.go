// Package scheduler runs periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// NotificationScheduler triggers notification digests on a cron schedule.
type NotificationScheduler struct {
	schedule string
	job      Job

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewNotificationScheduler creates a scheduler for job. It does nothing until Start.
func NewNotificationScheduler(schedule string, job Job) *NotificationScheduler {
	return &NotificationScheduler{
		schedule: schedule,
		job:      job,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRun returns when schedule next fires after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Describe returns a readable form of common schedules.
func Describe(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 8 * * *":
		return "Daily at 08:00"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 8 * * 1-5":
		return "Weekdays at 08:00"
	default:
		return "Custom schedule: " + schedule
	}
}

// Start registers the job and starts the cron loop. Cancelling ctx stops it.
func (s *NotificationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.job == nil {
		return fmt.Errorf("notification scheduler: no job configured")
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.run(runCtx) })
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule notifications: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRun(s.schedule, time.Now())
	log.Printf("Notification scheduler: started with schedule '%s' (%s). Next run: %v",
		s.schedule, Describe(s.schedule), next)

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(runCtx.Done())

	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	s.isRunning = false
	log.Printf("Notification scheduler: stopped")
}

// RunNow runs the job once in the caller's goroutine.
func (s *NotificationScheduler) RunNow(ctx context.Context) error {
	if s.job == nil {
		return fmt.Errorf("notification scheduler: no job configured")
	}
	return s.job(ctx)
}

// IsRunning reports whether the cron loop is active.
func (s *NotificationScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns the next scheduled run, or nil when stopped.
func (s *NotificationScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *NotificationScheduler) run(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		log.Printf("Notification scheduler: run failed: %v", err)
		return
	}
	log.Printf("Notification scheduler: run finished in %v", time.Since(start).Round(time.Millisecond))
}
