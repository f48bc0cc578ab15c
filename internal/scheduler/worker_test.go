package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingDrainer struct {
	calls     atomic.Int32
	batchSize atomic.Int32
}

func (d *countingDrainer) DrainQueue(ctx context.Context, maxJobs int) (int, error) {
	d.calls.Add(1)
	d.batchSize.Store(int32(maxJobs))
	return 0, nil
}

func TestWorker_DrainsOnInterval(t *testing.T) {
	drainer := &countingDrainer{}
	w := NewWorker(drainer, 10*time.Millisecond, 5)

	go w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	assert.GreaterOrEqual(t, drainer.calls.Load(), int32(3))
	assert.Equal(t, int32(5), drainer.batchSize.Load())
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	drainer := &countingDrainer{}
	w := NewWorker(drainer, time.Hour, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
