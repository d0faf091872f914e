package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/bookfetch/engine"
)

// Session is the report written at the end of a run.
type Session struct {
	ID         string         `yaml:"session"`
	Started    time.Time      `yaml:"started"`
	Finished   time.Time      `yaml:"finished"`
	Summary    engine.Summary `yaml:"summary"`
	Duplicates []string       `yaml:"duplicates,omitempty"`
	Tasks      []Task         `yaml:"tasks"`
}

// Task is the outcome of one task.
type Task struct {
	ID      string        `yaml:"id"`
	Source  string        `yaml:"source"`
	Path    string        `yaml:"path,omitempty"`
	Status  engine.Status `yaml:"status"`
	Attempt int           `yaml:"attempts"`
	Bytes   int64         `yaml:"bytes"`
	Kind    engine.Kind   `yaml:"error_kind,omitempty"`
	Err     string        `yaml:"error,omitempty"`
}

// NewSession collects the outcome of s.
func NewSession(s *engine.Session, sum engine.Summary, started, finished time.Time) Session {
	rep := Session{
		ID:         s.ID.String(),
		Started:    started.UTC(),
		Finished:   finished.UTC(),
		Summary:    sum,
		Duplicates: s.Duplicates,
		Tasks:      make([]Task, 0, len(s.Tasks)),
	}

	for _, t := range s.Tasks {
		task := Task{
			ID:      t.ID,
			Source:  t.Source,
			Path:    t.TargetPath,
			Status:  t.Status,
			Attempt: t.Attempt,
			Bytes:   t.BytesTransferred,
		}
		if t.Err != nil {
			task.Kind = t.Err.Kind
			task.Err = t.Err.Error()
		}
		rep.Tasks = append(rep.Tasks, task)
	}

	return rep
}

// WriteYAML writes rep to path, replacing any previous report.
func WriteYAML(path string, rep Session) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer os.Remove(f.Name())

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)

	if err := enc.Encode(rep); err != nil {
		f.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing report: %w", err)
	}

	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}
