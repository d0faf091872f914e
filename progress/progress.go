// Package progress aggregates task updates from the download workers
// into snapshots a renderer, a status endpoint or a test can read at its
// own pace.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/adamwoolhether/bookfetch/engine"
)

// Update is what workers report.
type Update = engine.Update

// TaskState is the last known state of one task.
type TaskState struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Name      string        `json:"name,omitempty"`
	Bytes     int64         `json:"bytes"`
	Total     int64         `json:"total"`
	Status    engine.Status `json:"status"`
	Attempt   int           `json:"attempt"`
	Retrying  bool          `json:"retrying,omitempty"`
	ErrKind   engine.Kind   `json:"error_kind,omitempty"`
	Err       string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Percent returns the completed share in [0, 100], or -1 when the total
// is unknown.
func (ts TaskState) Percent() float64 {
	if ts.Total <= 0 {
		if ts.Status == engine.Completed {
			return 100
		}
		return -1
	}
	return min(100, float64(ts.Bytes)*100/float64(ts.Total))
}

// Counts aggregates task states.
type Counts struct {
	Total     int   `json:"total"`
	Pending   int   `json:"pending"`
	Active    int   `json:"active"`
	Retrying  int   `json:"retrying"`
	Skipped   int   `json:"skipped"`
	Completed int   `json:"completed"`
	Failed    int   `json:"failed"`
	Bytes     int64 `json:"bytes"`
}

// Reporter is a concurrency-safe sink for task updates. Report never
// blocks beyond a short critical section: listeners are signalled
// through a single-slot channel, so bursts coalesce into one wake-up.
type Reporter struct {
	mu     sync.Mutex
	order  []string
	tasks  map[string]*TaskState
	notify chan struct{}
	now    func() time.Time
}

// New returns an empty Reporter.
func New() *Reporter {
	return &Reporter{
		tasks:  make(map[string]*TaskState),
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Report records u. The first update of a task fixes its position in
// snapshots.
func (r *Reporter) Report(u Update) {
	r.mu.Lock()
	ts, ok := r.tasks[u.TaskID]
	if !ok {
		ts = &TaskState{ID: u.TaskID}
		r.tasks[u.TaskID] = ts
		r.order = append(r.order, u.TaskID)
	}

	ts.Source = u.Source
	ts.Name = u.Name
	ts.Bytes = u.Bytes
	ts.Total = u.Total
	ts.Status = u.Status
	ts.Attempt = u.Attempt
	ts.Retrying = u.Retrying
	ts.ErrKind, ts.Err = 0, ""
	if u.Err != nil {
		ts.ErrKind = u.Err.Kind
		ts.Err = u.Err.Error()
	}
	ts.UpdatedAt = r.now()
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of every task state in registration order.
func (r *Reporter) Snapshot() []TaskState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskState, len(r.order))
	for i, id := range r.order {
		out[i] = *r.tasks[id]
	}
	return out
}

// Task returns the state of one task.
func (r *Reporter) Task(id string) (TaskState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.tasks[id]
	if !ok {
		return TaskState{}, false
	}
	return *ts, true
}

// Counts aggregates the current task states.
func (r *Reporter) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Counts{Total: len(r.order)}
	for _, ts := range r.tasks {
		c.Bytes += ts.Bytes

		switch {
		case ts.Retrying:
			c.Retrying++
		case ts.Status == engine.Pending:
			c.Pending++
		case ts.Status.IsActive():
			c.Active++
		case ts.Status == engine.Skipped:
			c.Skipped++
		case ts.Status == engine.Completed:
			c.Completed++
		case ts.Status == engine.Failed:
			c.Failed++
		}
	}
	return c
}

// Changed is signalled after updates. Several updates between two reads
// produce a single signal.
func (r *Reporter) Changed() <-chan struct{} {
	return r.notify
}

// Watch calls fn with a fresh snapshot whenever the reporter changes, at
// most once per interval, until ctx ends. fn is called one last time on
// the way out so the final state is always rendered.
func Watch(ctx context.Context, r *Reporter, interval time.Duration, fn func([]TaskState)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dirty := true
	for {
		select {
		case <-ctx.Done():
			fn(r.Snapshot())
			return
		case <-r.Changed():
			dirty = true
		case <-ticker.C:
			if dirty {
				fn(r.Snapshot())
				dirty = false
			}
		}
	}
}
