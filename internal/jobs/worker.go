package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/metrics"
)

// Processor executes a single job
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// Throttle can hold the worker back between jobs, e.g. under memory pressure.
// WaitIfPaused returns false when the worker should stop.
type Throttle interface {
	WaitIfPaused(ctx context.Context) bool
}

// Outcome is implemented by processing errors that know their metrics outcome
type Outcome interface {
	Outcome() string
}

// State of the worker loop
type State int32

const (
	StateIdle State = iota
	StateDequeuing
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDequeuing:
		return "dequeuing"
	case StateExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// PanicError is a panic raised while processing a job
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Outcome implements Outcome
func (e *PanicError) Outcome() string {
	return metrics.OutcomePanic
}

// Worker is the single consumer of a Dispatcher. It runs one job at a time;
// a failing or panicking job never stops the loop.
type Worker struct {
	dispatcher *Dispatcher
	processor  Processor
	throttle   Throttle

	state   atomic.Int32
	running atomic.Bool

	mu      sync.Mutex
	current string
}

// NewWorker creates a worker. throttle may be nil.
func NewWorker(dispatcher *Dispatcher, processor Processor, throttle Throttle) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		processor:  processor,
		throttle:   throttle,
	}
}

// Run processes jobs until ctx is cancelled. A job that has started when ctx
// is cancelled still runs to completion.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	metrics.WorkerRunning.Set(1)
	logging.Info("Worker started")

	defer func() {
		w.running.Store(false)
		w.setState(StateIdle)
		metrics.WorkerRunning.Set(0)
		logging.Info("Worker stopped")
	}()

	for {
		if w.throttle != nil && !w.throttle.WaitIfPaused(ctx) {
			return
		}

		w.setState(StateDequeuing)
		job, err := w.dispatcher.Next(ctx)
		if err != nil {
			return
		}

		w.execute(context.WithoutCancel(ctx), job)
		w.setState(StateIdle)
	}
}

func (w *Worker) execute(ctx context.Context, job Job) {
	w.setState(StateExecuting)
	if !w.dispatcher.Begin(job.ID) {
		logging.Warn("job %s: was not pending when dequeued", job.ID)
	}
	w.setCurrent(job.ID)
	metrics.WorkerBusy.Set(1)
	start := time.Now()

	defer func() {
		w.dispatcher.Complete(job.ID)
		w.setCurrent("")
		metrics.WorkerBusy.Set(0)
		metrics.JobDuration.Observe(time.Since(start).Seconds())
	}()

	logging.Debug("job %s: started", job)

	err := w.runProtected(ctx, job)
	outcome := outcomeOf(err)
	metrics.JobsTotal.WithLabelValues(outcome).Inc()

	var panicErr *PanicError
	switch {
	case err == nil:
		logging.Info("job %s: completed in %v", job.ID, time.Since(start).Round(time.Millisecond))
	case errors.As(err, &panicErr):
		logging.Error("job %s: %v", job.ID, err)
		logging.Debug("job %s: stack trace:\n%s", job.ID, panicErr.Stack)
	case outcome == metrics.OutcomeSourceMissing:
		logging.Warn("job %s: %v, dropping", job.ID, err)
	default:
		logging.Error("job %s: %v", job.ID, err)
	}
}

// runProtected turns a panic in the processor into a *PanicError
func (w *Worker) runProtected(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return w.processor.Process(ctx, job)
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeCompleted
	}
	var o Outcome
	if errors.As(err, &o) {
		return o.Outcome()
	}
	return metrics.OutcomeFailed
}

// IsRunning reports whether the loop is running
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// State returns the current loop state
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Current returns the id of the job being executed, or ""
func (w *Worker) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

func (w *Worker) setCurrent(id string) {
	w.mu.Lock()
	w.current = id
	w.mu.Unlock()
}
