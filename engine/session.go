package engine

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IdentifyFunc derives the stable task ID for an input source.
type IdentifyFunc func(source string) (string, error)

// Session is a single run over a fixed list of tasks.
type Session struct {
	ID               uuid.UUID
	ConcurrencyLimit int

	// Tasks is in input order and unique by ID.
	Tasks []*Task

	// Duplicates lists the sources that collapsed into an earlier task.
	Duplicates []string

	started atomic.Bool
}

// NewSession turns sources into tasks, skipping blank entries and
// collapsing sources that identify to the same ID. A source identify
// rejects still becomes a task, keyed by the trimmed source, which fails
// when it is resolved.
func NewSession(sources []string, identify IdentifyFunc, limit int) (*Session, error) {
	if limit <= 0 {
		return nil, ErrInvalidConcurrency
	}

	s := Session{
		ID:               uuid.New(),
		ConcurrencyLimit: limit,
	}

	seen := make(map[string]struct{}, len(sources))
	for _, raw := range sources {
		source := strings.TrimSpace(raw)
		if source == "" {
			continue
		}

		id, err := source, error(nil)
		if identify != nil {
			if id, err = identify(source); err != nil {
				id = source
			}
		}

		if _, dup := seen[id]; dup {
			s.Duplicates = append(s.Duplicates, source)
			continue
		}
		seen[id] = struct{}{}

		s.Tasks = append(s.Tasks, newTask(id, source, err))
	}

	if len(s.Tasks) == 0 {
		return nil, ErrNoSources
	}

	return &s, nil
}

// Failure describes one failed task in a Summary.
type Failure struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Err    string `json:"error" yaml:"error"`
}

// Summary is the outcome of a run. Completed+Skipped+Failed always
// equals Total.
type Summary struct {
	Completed int       `json:"completed" yaml:"completed"`
	Skipped   int       `json:"skipped" yaml:"skipped"`
	Failed    int       `json:"failed" yaml:"failed"`
	Total     int       `json:"total" yaml:"total"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	Failures  []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// OK reports whether every task was completed or skipped.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// HasKind reports whether any task failed with kind k.
func (s Summary) HasKind(k Kind) bool {
	for _, f := range s.Failures {
		if f.Kind == k {
			return true
		}
	}
	return false
}

func summarize(tasks []*Task) Summary {
	sum := Summary{Total: len(tasks)}

	for _, t := range tasks {
		switch t.Status {
		case Completed:
			sum.Completed++
			sum.Bytes += t.BytesTransferred
		case Skipped:
			sum.Skipped++
		default:
			sum.Failed++

			f := Failure{ID: t.ID, Source: t.Source, Kind: Cancelled, Err: "task did not finish"}
			if t.Err != nil {
				f.Kind = t.Err.Kind
				f.Err = t.Err.Error()
			}
			sum.Failures = append(sum.Failures, f)
		}
	}

	return sum
}
