package jobs

import (
	"context"
	"sync"

	"focus-thumbnailer/internal/metrics"
)

// Stats is a point-in-time view of the intake state
type Stats struct {
	Pending        int      `json:"pending"`
	Processing     int      `json:"processing"`
	ProcessingJobs []string `json:"processing_jobs"`
	QueueSize      int      `json:"queue_size"`
}

// Dispatcher owns the tracker and the queue. Admission and enqueue happen
// under one lock, so queue order always equals admission order.
type Dispatcher struct {
	mu      sync.Mutex
	tracker *Tracker
	queue   *Queue
}

// NewDispatcher creates a dispatcher with an empty tracker and queue
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		tracker: NewTracker(),
		queue:   NewQueue(),
	}
}

// Submit admits job and queues it. A job whose id is already pending or
// processing is not queued again.
func (d *Dispatcher) Submit(job Job) Admission {
	d.mu.Lock()
	admission := d.tracker.TryAdmit(job.ID)
	if admission == Admitted {
		d.queue.Push(job)
	}
	d.mu.Unlock()

	metrics.JobAdmissionsTotal.WithLabelValues(admission.String()).Inc()
	return admission
}

// Next blocks until a job is available or ctx is done
func (d *Dispatcher) Next(ctx context.Context) (Job, error) {
	return d.queue.Pop(ctx)
}

// Begin marks id as processing
func (d *Dispatcher) Begin(id string) bool {
	return d.tracker.BeginProcessing(id)
}

// Complete forgets id
func (d *Dispatcher) Complete(id string) {
	d.tracker.Complete(id)
}

// Stats returns counts and the ids being processed
func (d *Dispatcher) Stats() Stats {
	pending, processing := d.tracker.Snapshot()
	return Stats{
		Pending:        pending,
		Processing:     len(processing),
		ProcessingJobs: processing,
		QueueSize:      d.queue.Len(),
	}
}

// QueueStats implements metrics.StatsProvider
func (d *Dispatcher) QueueStats() metrics.QueueStats {
	s := d.Stats()
	return metrics.QueueStats{
		Pending:    s.Pending,
		Processing: s.Processing,
		QueueSize:  s.QueueSize,
	}
}
