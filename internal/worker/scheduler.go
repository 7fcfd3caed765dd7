package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool is what the scheduler submits to.
type Pool interface {
	SubmitJob(ctx context.Context, job NamedJob) error
}

// JobScheduler submits its jobs to a pool on every tick.
type JobScheduler struct {
	Name     string
	Interval time.Duration
	Pool     Pool

	mu   sync.RWMutex
	jobs []NamedJob
}

func NewJobScheduler(name string, interval time.Duration, pool Pool) *JobScheduler {
	return &JobScheduler{
		Name:     name,
		Interval: interval,
		Pool:     pool,
		jobs:     make([]NamedJob, 0),
	}
}

func (s *JobScheduler) AddJob(job NamedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Run blocks until ctx is cancelled.
func (s *JobScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	slog.Info("Scheduler running", "scheduler", s.Name, "interval", s.Interval)
	for {
		select {
		case <-ticker.C:
			s.submitJobs(ctx)
		case <-ctx.Done():
			slog.Info("Scheduler shutting down", "scheduler", s.Name)
			return
		}
	}
}

// submitJobs does not wait longer than one interval for queue space, so a
// stalled pool drops ticks instead of piling them up.
func (s *JobScheduler) submitJobs(ctx context.Context) {
	s.mu.RLock()
	jobsToRun := make([]NamedJob, len(s.jobs))
	copy(jobsToRun, s.jobs)
	s.mu.RUnlock()

	for _, job := range jobsToRun {
		submitCtx, cancel := context.WithTimeout(ctx, s.Interval)
		if err := s.Pool.SubmitJob(submitCtx, job); err != nil {
			slog.Warn("Failed to submit job", "scheduler", s.Name, "job", job.Name, "error", err)
		}
		cancel()
	}
}
