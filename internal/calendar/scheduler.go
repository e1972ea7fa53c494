package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/reservation-engine/internal/scheduler"
)

// Importer submits calendar events through the booking pipeline.
type Importer interface {
	ImportFromCalendar(ctx context.Context, source Source, from, to time.Time, actor scheduler.User) ([]scheduler.BookingID, error)
}

// Job describes one periodic import.
type Job struct {
	Name   string
	Spec   string // cron spec with seconds, or "@every 15m"
	Source Source
	Window time.Duration // events in [now, now+Window) are imported
	Actor  scheduler.User
}

// Scheduler runs periodic calendar imports.
type Scheduler struct {
	cron     *cron.Cron
	importer Importer
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.RWMutex
	jobs map[string]cron.EntryID
}

// NewScheduler creates a Scheduler. A nil logger selects slog.Default().
func NewScheduler(importer Importer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		importer: importer,
		now:      time.Now,
		logger:   logger.With("component", "calendar_scheduler"),
		jobs:     make(map[string]cron.EntryID),
	}
}

// Schedule adds or replaces the job with the same name.
func (s *Scheduler) Schedule(job Job) error {
	if job.Source == nil {
		return fmt.Errorf("calendar: job %q has no source", job.Name)
	}
	if job.Window <= 0 {
		job.Window = 24 * time.Hour
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[job.Name]; ok {
		s.cron.Remove(existing)
		delete(s.jobs, job.Name)
	}
	id, err := s.cron.AddFunc(job.Spec, func() {
		_, _ = s.Run(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("calendar: schedule %q: %w", job.Name, err)
	}
	s.jobs[job.Name] = id
	s.logger.Info("calendar import scheduled", "job", job.Name, "spec", job.Spec, "window", job.Window)
	return nil
}

// Unschedule removes the named job.
func (s *Scheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.jobs[name]; ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
}

// Run performs one import for job immediately.
func (s *Scheduler) Run(ctx context.Context, job Job) ([]scheduler.BookingID, error) {
	from := s.now()
	window := job.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	ids, err := s.importer.ImportFromCalendar(ctx, job.Source, from, from.Add(window), job.Actor)
	if err != nil {
		s.logger.ErrorContext(ctx, "calendar import failed", "job", job.Name, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "calendar import completed", "job", job.Name, "imported", len(ids))
	return ids, nil
}

// NextRun returns the next scheduled run of the named job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running imports to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
