package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"vigil/internal/models"
)

var ErrQueueClosed = errors.New("alerts: queue closed")

// Queue is a bounded FIFO handoff between the collection loop and the
// processing loop. Push blocks while the queue is full, it never drops.
type Queue struct {
	ch   chan models.Alert
	done chan struct{}
	once sync.Once
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan models.Alert, capacity),
		done: make(chan struct{}),
	}
}

func (q *Queue) Push(ctx context.Context, a models.Alert) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- a:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks up to timeout for the next alert. The false return means
// timeout, cancellation, or a closed and drained queue.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (models.Alert, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case a := <-q.ch:
		return a, true
	case <-q.done:
		select {
		case a := <-q.ch:
			return a, true
		default:
			return models.Alert{}, false
		}
	case <-ctx.Done():
		return models.Alert{}, false
	case <-timer.C:
		return models.Alert{}, false
	}
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}
