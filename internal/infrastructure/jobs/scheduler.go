package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Job is a named piece of housekeeping run on a fixed interval.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs background jobs for the lifetime of the process. A job never
// overlaps with itself and the first run waits one full interval.
type Scheduler struct {
	cron   *gocron.Scheduler
	logger *zap.SugaredLogger
}

func NewScheduler(logger *zap.SugaredLogger) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	cron.WaitForScheduleAll()
	return &Scheduler{cron: cron, logger: logger}
}

// Add registers job. ctx is handed to every run and should outlive the
// scheduler.
func (s *Scheduler) Add(ctx context.Context, job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name must not be empty")
	}
	if job.Every <= 0 {
		return fmt.Errorf("job %s: interval must be > 0", job.Name)
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run func must not be nil", job.Name)
	}

	_, err := s.cron.Every(job.Every).Tag(job.Name).Do(func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Warnw("Scheduled job failed",
				"job", job.Name,
				"duration", time.Since(start),
				"error", err,
			)
			return
		}
		s.logger.Debugw("Scheduled job finished", "job", job.Name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop prevents further runs. A run already in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Jobs())
}
