package jobs

import (
	"context"
	"log"
	"time"
)

const minPollInterval = 100 * time.Millisecond

// JobProcessor drains a batch of pending jobs. Implementations are invoked
// once per poll tick and decide their own batch size.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor at a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a Worker. Intervals below minPollInterval are clamped.
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	if pollInterval < minPollInterval {
		pollInterval = minPollInterval
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. Processing errors are logged and the loop keeps ticking.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("job worker polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("job worker stopping: context cancelled")
			return
		case <-w.stopChan:
			log.Println("job worker stopping: stop requested")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("job worker: process jobs failed: %v", err)
			}
		}
	}
}

// Stop signals the loop to exit and waits for it to drain.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("job worker stopped")
}
