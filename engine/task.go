package engine

import (
	"fmt"
	"slices"
)

// Status is a task's position in the download state machine.
type Status int

const (
	Pending Status = iota
	Resolving
	Checking
	Downloading
	Verifying
	Skipped
	Completed
	Failed
)

var statusNames = [...]string{
	Pending:     "pending",
	Resolving:   "resolving",
	Checking:    "checking",
	Downloading: "downloading",
	Verifying:   "verifying",
	Skipped:     "skipped",
	Completed:   "completed",
	Failed:      "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText renders the status by name in reports and JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether s is Skipped, Completed or Failed. A Failed
// task may still re-enter Downloading while it has retry budget left.
func (s Status) IsTerminal() bool {
	return s == Skipped || s == Completed || s == Failed
}

// IsActive reports whether s counts against the concurrency limit.
func (s Status) IsActive() bool {
	return s == Resolving || s == Checking || s == Downloading || s == Verifying
}

var transitions = map[Status][]Status{
	Pending:     {Resolving},
	Resolving:   {Checking, Failed},
	Checking:    {Skipped, Downloading, Failed},
	Downloading: {Verifying, Failed},
	Verifying:   {Completed, Failed},
	Failed:      {Downloading},
}

// Task is one unit of work. Its fields are written only by the worker
// that owns it; everyone else sees copies delivered through a Reporter.
type Task struct {
	ID     string
	Source string

	// Filled in after resolution.
	ResolvedURL       string
	Name              string
	ExpectedSize      int64
	ExpectedChecksum  string
	ChecksumAlgorithm string
	TargetPath        string

	Status           Status
	Attempt          int
	BytesTransferred int64
	TotalBytes       int64
	Err              *TaskError

	identErr error
}

func newTask(id, source string, identErr error) *Task {
	return &Task{
		ID:           id,
		Source:       source,
		ExpectedSize: -1,
		TotalBytes:   -1,
		identErr:     identErr,
	}
}

// advance moves the task to status to. Failed → Downloading is only
// allowed while Attempt < maxAttempts.
func (t *Task) advance(to Status, maxAttempts int) error {
	if !slices.Contains(transitions[t.Status], to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	if t.Status == Failed && t.Attempt >= maxAttempts {
		return fmt.Errorf("%w: %s -> %s: attempt %d of %d", ErrInvalidTransition, t.Status, to, t.Attempt, maxAttempts)
	}

	t.Status = to
	return nil
}

// setProgress records done bytes out of total. A body outgrowing a known
// total turns the total unknown, so BytesTransferred never exceeds a
// known TotalBytes.
func (t *Task) setProgress(done, total int64) {
	t.BytesTransferred = done
	t.TotalBytes = total
	if total >= 0 && done > total {
		t.TotalBytes = -1
	}
}

// fail moves the task to Failed with err. Only a cancellation may fail a
// task that was never dispatched.
func (t *Task) fail(err *TaskError) error {
	switch {
	case t.Status == Pending && err.Kind == Cancelled:
	case t.Status == Failed:
	default:
		if !slices.Contains(transitions[t.Status], Failed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, Failed)
		}
	}

	t.Status = Failed
	t.Err = err
	return nil
}
