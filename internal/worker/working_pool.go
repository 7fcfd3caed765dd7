package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrPoolStopped = errors.New("working pool stopped")

// Job is one unit of background work.
type Job func(ctx context.Context) error

// NamedJob pairs a job with the name used in logs.
type NamedJob struct {
	Name string
	Run  Job
}

// WorkingPool runs submitted jobs on a fixed number of goroutines.
type WorkingPool struct {
	NumWorkers int
	jobChan    chan NamedJob
	stopped    chan struct{}
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan NamedJob, queueSize),
		stopped:    make(chan struct{}),
	}
}

// SubmitJob queues a job, waiting until there is room, ctx ends or the pool
// stops.
func (p *WorkingPool) SubmitJob(ctx context.Context, job NamedJob) error {
	select {
	case <-p.stopped:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobChan <- job:
		return nil
	case <-p.stopped:
		return ErrPoolStopped
	case <-ctx.Done():
		return fmt.Errorf("submit %s: %w", job.Name, ctx.Err())
	}
}

// Start blocks until ctx is cancelled and every worker has returned.
func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	if managerWg != nil {
		defer managerWg.Done()
	}

	var workerWg sync.WaitGroup
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()
	slog.Info("Working pool shutdown signaled")
	close(p.stopped)

	workerWg.Wait()
	slog.Info("All pool workers stopped")
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	slog.Debug("Pool worker started", "worker_id", id)

	for {
		select {
		case job := <-p.jobChan:
			p.safeExecution(ctx, job, id)
		case <-ctx.Done():
			slog.Debug("Pool worker exiting", "worker_id", id)
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job NamedJob, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", job.Name, r)
			slog.Error("Panic recovered in job", "worker_id", workerID, "job", job.Name, "panic", r)
		}
	}()

	err = job.Run(ctx)
	if err != nil {
		slog.Warn("Job finished with error", "worker_id", workerID, "job", job.Name, "error", err)
	}
	return err
}
