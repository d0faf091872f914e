// Package engine runs download sessions: it resolves every input to a
// descriptor, skips files already present and valid, and downloads the
// rest through a fixed pool of workers with retries and verification.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/bookfetch/client"
	"github.com/adamwoolhether/bookfetch/resolve"
)

// Resolver maps an input source to a download descriptor.
type Resolver interface {
	Resolve(ctx context.Context, source string) (resolve.Descriptor, error)
}

// Credentials supplies the bearer token. It is read once per run, and
// refreshed once when a run starts without one.
type Credentials interface {
	Token() (string, bool)
	Refresh(ctx context.Context) (string, error)
}

// Fetcher streams a request's response body to destPath.
// [*client.Client] implements it.
type Fetcher interface {
	Download(req *http.Request, expCode int, destPath string, opts ...client.DownloadOption) (int64, error)
}

// Update is a copy of a task's observable state.
type Update struct {
	TaskID   string
	Source   string
	Name     string
	Bytes    int64
	Total    int64
	Status   Status
	Attempt  int
	Retrying bool
	Err      *TaskError
}

// Reporter receives task updates. Report is called from worker
// goroutines and must not block.
type Reporter interface {
	Report(Update)
}

// Observer receives the outcome of every fetch attempt, a nil error
// meaning success, and of every finished task.
type Observer interface {
	Attempt(err *TaskError)
	Finished(t Task, elapsed time.Duration)
}

// Engine executes sessions. It is safe to run several sessions
// sequentially with one Engine.
type Engine struct {
	resolver Resolver
	creds    Credentials
	fetcher  Fetcher
	reporter Reporter
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer

	policy           Policy
	hardTimeout      time.Duration
	progressInterval time.Duration
	outputDir        string
	filename         string
	keepCorrupt      bool
}

// New builds an Engine fetching through the resolver with the token from
// creds.
func New(resolver Resolver, creds Credentials, optFns ...Option) (*Engine, error) {
	if resolver == nil {
		return nil, errors.New("resolver must not be nil")
	}
	if creds == nil {
		return nil, errors.New("credentials must not be nil")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying engine option: %w", err)
		}
	}

	e := Engine{
		resolver:         resolver,
		creds:            creds,
		fetcher:          opts.fetcher,
		reporter:         opts.reporter,
		observer:         opts.observer,
		logger:           opts.logger,
		tracer:           opts.tracer,
		policy:           DefaultPolicy(),
		hardTimeout:      DefaultHardTimeout,
		progressInterval: opts.progressInterval,
		outputDir:        ".",
		filename:         opts.filename,
		keepCorrupt:      opts.keepCorrupt,
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/adamwoolhether/bookfetch/engine")
	}
	if e.reporter == nil {
		e.reporter = nopReporter{}
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if opts.policy != nil {
		e.policy = *opts.policy
	}
	if opts.hardTimeout != nil {
		e.hardTimeout = *opts.hardTimeout
	}
	if opts.outputDir != "" {
		e.outputDir = opts.outputDir
	}
	if e.fetcher == nil {
		c, err := client.Build(client.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("building client: %w", err)
		}
		e.fetcher = c
	}

	return &e, nil
}

type nopReporter struct{}

func (nopReporter) Report(Update) {}

type nopObserver struct{}

func (nopObserver) Attempt(*TaskError)            {}
func (nopObserver) Finished(Task, time.Duration) {}
