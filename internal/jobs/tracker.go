package jobs

import (
	"sort"
	"sync"
)

// Admission is the result of TryAdmit
type Admission int

const (
	// Admitted means the id was new and is now pending
	Admitted Admission = iota
	// AlreadyTracked means the id is already pending or processing
	AlreadyTracked
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "queued"
	case AlreadyTracked:
		return "already_queued"
	default:
		return "unknown"
	}
}

// Tracker holds the identities of in-flight jobs in two disjoint sets,
// pending and processing. All methods are safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	pending    map[string]struct{}
	processing map[string]struct{}
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		pending:    make(map[string]struct{}),
		processing: make(map[string]struct{}),
	}
}

// TryAdmit adds id to the pending set unless it is already pending or
// processing, in which case nothing changes.
func (t *Tracker) TryAdmit(id string) Admission {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tracked(id) {
		return AlreadyTracked
	}
	t.pending[id] = struct{}{}
	return Admitted
}

// BeginProcessing moves id from pending to processing. It reports whether
// id was pending.
func (t *Tracker) BeginProcessing(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, wasPending := t.pending[id]
	delete(t.pending, id)
	t.processing[id] = struct{}{}
	return wasPending
}

// Complete removes id from processing. Calling it for an unknown id is a no-op.
func (t *Tracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.processing, id)
}

func (t *Tracker) tracked(id string) bool {
	if _, ok := t.pending[id]; ok {
		return true
	}
	_, ok := t.processing[id]
	return ok
}

// Snapshot returns the number of pending jobs and the sorted ids of the jobs
// being processed. The slice is never nil.
func (t *Tracker) Snapshot() (pending int, processing []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	processing = make([]string, 0, len(t.processing))
	for id := range t.processing {
		processing = append(processing, id)
	}
	sort.Strings(processing)
	return len(t.pending), processing
}
