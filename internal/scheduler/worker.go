package scheduler

import (
	"context"
	"log"
	"time"
)

// QueueDrainer processes a bounded batch of queued jobs.
type QueueDrainer interface {
	DrainQueue(ctx context.Context, maxJobs int) (int, error)
}

// Worker drives the scheduler's drain loop on a fixed interval.
type Worker struct {
	drainer      QueueDrainer
	pollInterval time.Duration
	batchSize    int
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(drainer QueueDrainer, pollInterval time.Duration, batchSize int) *Worker {
	return &Worker{
		drainer:      drainer,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Worker started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Worker stopped: stop signal received")
			return
		case <-ticker.C:
			processed, err := w.drainer.DrainQueue(ctx, w.batchSize)
			if err != nil {
				log.Printf("Error draining job queue: %v", err)
			}
			if processed > 0 {
				log.Printf("Drained %d job(s)", processed)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Worker shutdown complete")
}
