package jobs

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of jobs. Push never blocks; Pop blocks until a
// job is available. Many goroutines may push, one goroutine pops.
type Queue struct {
	mu    sync.Mutex
	items []Job
	ready chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends job to the tail
func (q *Queue) Push(job Job) {
	q.mu.Lock()
	q.items = append(q.items, job)
	q.mu.Unlock()

	// Wake the consumer; a pending wakeup is enough
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head of the queue, waiting for one to arrive
// if the queue is empty. It returns ctx.Err() if ctx is done first.
func (q *Queue) Pop(ctx context.Context) (Job, error) {
	for {
		if job, ok := q.tryPop(); ok {
			return job, nil
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Job{}, ctx.Err()
		}
	}
}

func (q *Queue) tryPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Job{}, false
	}

	job := q.items[0]
	q.items[0] = Job{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Drop the backing array once drained so it does not grow forever
		q.items = nil
	}
	return job, true
}

// Len returns the number of queued jobs
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
