package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultHardTimeout is how long in-flight tasks may keep running after
// a run is interrupted.
const DefaultHardTimeout = 30 * time.Second

// Option is a functional option for configuring an [Engine] via [New].
type Option func(*options) error

type options struct {
	logger           *slog.Logger
	tracer           trace.Tracer
	fetcher          Fetcher
	reporter         Reporter
	observer         Observer
	policy           *Policy
	hardTimeout      *time.Duration
	progressInterval time.Duration
	outputDir        string
	filename         string
	keepCorrupt      bool
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used for per-task spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithFetcher replaces the HTTP client used for downloads.
func WithFetcher(f Fetcher) Option {
	return func(o *options) error {
		if f == nil {
			return errors.New("fetcher must not be nil")
		}
		o.fetcher = f
		return nil
	}
}

// WithReporter receives every task update.
func WithReporter(r Reporter) Option {
	return func(o *options) error {
		if r == nil {
			return errors.New("reporter must not be nil")
		}
		o.reporter = r
		return nil
	}
}

// WithObserver receives per-attempt and per-task outcomes, typically
// for metrics.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs == nil {
			return errors.New("observer must not be nil")
		}
		o.observer = obs
		return nil
	}
}

// WithPolicy overrides [DefaultPolicy].
func WithPolicy(p Policy) Option {
	return func(o *options) error {
		if err := p.validate(); err != nil {
			return fmt.Errorf("retry policy: %w", err)
		}
		o.policy = &p
		return nil
	}
}

// WithHardTimeout bounds how long in-flight tasks may continue after
// the run context is cancelled.
func WithHardTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("hard timeout must not be negative")
		}
		o.hardTimeout = &d
		return nil
	}
}

// WithProgressInterval sets the minimum gap between byte progress updates
// of a single task.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("progress interval must be positive")
		}
		o.progressInterval = d
		return nil
	}
}

// WithOutputDir sets the directory files are written to. It is created
// on demand.
func WithOutputDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.New("output dir must not be empty")
		}
		o.outputDir = dir
		return nil
	}
}

// WithFilename names the output file when a session holds exactly one
// task, overriding the resolved filename.
func WithFilename(name string) Option {
	return func(o *options) error {
		o.filename = name
		return nil
	}
}

// WithKeepCorrupt keeps the last failed download of a task that runs out
// of attempts on an integrity error, as <target>.corrupt.
func WithKeepCorrupt(keep bool) Option {
	return func(o *options) error {
		o.keepCorrupt = keep
		return nil
	}
}
