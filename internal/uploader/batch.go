package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/shoptools/shoppush/internal/shop"
)

// Task is one prepared record handed to the batch. Request is nil when
// validation already rejected the record; Err carries the reason.
type Task struct {
	Title   string
	Request *shop.ProductRequest
	Err     error
}

// Coordinator fans a batch of tasks over a bounded worker pool. Upload
// starts across all workers pass through one shared pacing gate, so the
// request rate stays below the platform quota regardless of pool size.
type Coordinator struct {
	orchestrator *Orchestrator
	concurrency  int
	limiter      *rate.Limiter
}

// NewCoordinator creates a coordinator with the given pool size. A zero
// minInterval disables pacing.
func NewCoordinator(orchestrator *Orchestrator, concurrency int, limiter *rate.Limiter) *Coordinator {
	return &Coordinator{
		orchestrator: orchestrator,
		concurrency:  concurrency,
		limiter:      limiter,
	}
}

// Run uploads all tasks and returns one attempt per task, in input
// order. Rejected tasks are reported without touching the network.
// Cancellation stops new uploads; in-flight ones finish on their own.
func (c *Coordinator) Run(ctx context.Context, tasks []Task) []Attempt {
	slog.Info("Starting batch upload", "tasks", len(tasks), "concurrency", c.concurrency)

	attempts := make([]Attempt, len(tasks))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.concurrency)

	for i, task := range tasks {
		if task.Err != nil {
			attempts[i] = rejectedAttempt(i, task.Title, task.Err)
			continue
		}

		wg.Add(1)
		go func(idx int, req *shop.ProductRequest) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					attempts[idx] = Attempt{
						Index:        idx,
						Title:        req.Title,
						OutProductID: req.OutProductID,
						Outcome:      OutcomeCanceled,
						ErrMsg:       err.Error(),
					}
					return
				}
			}

			slog.Info("Uploading product", "progress", fmt.Sprintf("%d/%d", idx+1, len(tasks)), "title", req.Title)
			attempts[idx] = c.orchestrator.Upload(ctx, idx, req)
		}(i, task.Request)
	}

	wg.Wait()

	slog.Info("Batch upload finished", "tasks", len(tasks))
	return attempts
}

func rejectedAttempt(idx int, title string, err error) Attempt {
	return Attempt{
		Index:   idx,
		Title:   title,
		Outcome: OutcomeRejected,
		ErrMsg:  err.Error(),
	}
}
