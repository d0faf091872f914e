// Package status serves the live state of a download session over HTTP:
// task snapshots, aggregate counts, a health probe and Prometheus
// metrics.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/bookfetch/progress"
	"github.com/adamwoolhether/bookfetch/validate"
	"github.com/adamwoolhether/bookfetch/web"
	"github.com/adamwoolhether/bookfetch/web/errs"
	"github.com/adamwoolhether/bookfetch/web/middleware"
	"github.com/adamwoolhether/bookfetch/web/mux"
)

// Source is the task state the handlers read. *progress.Reporter
// satisfies it.
type Source interface {
	Snapshot() []progress.TaskState
	Counts() progress.Counts
	Task(id string) (progress.TaskState, bool)
}

// Config wires the status handlers.
type Config struct {
	Source  Source
	Metrics http.Handler
	Log     *slog.Logger
	Tracer  trace.Tracer
}

// NewApp returns the status routes behind the Logger, Errors and Panics
// middleware. /metrics is only routed when cfg.Metrics is set.
func NewApp(cfg Config) *mux.App {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	opts := []mux.Option{
		mux.WithLogger(cfg.Log),
		mux.WithMiddleware(
			middleware.Logger(cfg.Log),
			middleware.Errors(cfg.Log),
			middleware.Panics(),
		),
	}
	if cfg.Tracer != nil {
		opts = append(opts, mux.WithTracer(cfg.Tracer))
	}

	app := mux.New(opts...)

	h := handlers{src: cfg.Source, started: time.Now()}
	app.Get("/healthz", h.health)
	app.Get("/v1/tasks", h.tasks)
	app.Get("/v1/tasks/{id...}", h.task)
	app.Get("/v1/summary", h.summary)

	if cfg.Metrics != nil {
		app.HandleRaw(http.MethodGet, "/metrics", cfg.Metrics)
	}

	return app
}

type handlers struct {
	src     Source
	started time.Time
}

func (h handlers) health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.RespondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type taskQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=pending resolving checking downloading verifying skipped completed failed"`
}

type taskList struct {
	Tasks []progress.TaskState `json:"tasks"`
	Total int                  `json:"total"`
}

func (h handlers) tasks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := taskQuery{Status: r.URL.Query().Get("status")}
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("task query: %w", err)
	}

	snap := h.src.Snapshot()

	list := taskList{Tasks: make([]progress.TaskState, 0, len(snap)), Total: len(snap)}
	for _, ts := range snap {
		if q.Status != "" && ts.Status.String() != q.Status {
			continue
		}
		list.Tasks = append(list.Tasks, ts)
	}

	return web.RespondJSON(ctx, w, http.StatusOK, list)
}

func (h handlers) task(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	ts, ok := h.src.Task(id)
	if !ok {
		return errs.New(http.StatusNotFound, fmt.Errorf("task %q not found", id))
	}

	return web.RespondJSON(ctx, w, http.StatusOK, ts)
}

type summary struct {
	progress.Counts
	Done    bool   `json:"done"`
	Elapsed string `json:"elapsed"`
}

func (h handlers) summary(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c := h.src.Counts()

	return web.RespondJSON(ctx, w, http.StatusOK, summary{
		Counts:  c,
		Done:    c.Total > 0 && c.Pending+c.Active+c.Retrying == 0,
		Elapsed: time.Since(h.started).Round(time.Millisecond).String(),
	})
}
