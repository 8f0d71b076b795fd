package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Job represents a scheduled repeating task that can be closed. Close
// cancels the task cooperatively and does not return until the task's
// goroutine has terminated.
type Job interface {
	Close() error
}

// JobScheduler schedules repeating poll jobs. The cycle callback runs
// immediately on schedule, then once per interval; returning false from it
// ends the job (terminal failure), returning true continues.
type JobScheduler interface {
	Schedule(jobID string, interval time.Duration, cycle func(ctx context.Context) bool) (Job, error)
}

// GoroutineScheduler is the production implementation: one goroutine per
// job, cancelled through its context. Cancellation is observed at the
// inter-cycle sleep and, inside a running cycle, through the context handed
// to the fetch (bounded by the adapters' request timeout).
type GoroutineScheduler struct{}

// Schedule starts the job goroutine. The first cycle runs with no initial
// delay.
func (GoroutineScheduler) Schedule(jobID string, interval time.Duration, cycle func(ctx context.Context) bool) (Job, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval for job %s: %v", jobID, interval)
	}
	if cycle == nil {
		return nil, fmt.Errorf("nil cycle callback for job %s", jobID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &goroutineJob{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(job.done)
		for {
			if ctx.Err() != nil {
				return
			}
			if !cycle(ctx) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()

	return job, nil
}

type goroutineJob struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close cancels the job and waits for its goroutine to finish. Safe to call
// more than once, and safe to call after the job ended itself.
func (j *goroutineJob) Close() error {
	j.once.Do(j.cancel)
	<-j.done
	return nil
}
