package mux

import (
	"log/slog"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type Option func(*options)

type options struct {
	tracer trace.Tracer
	logger *slog.Logger
	mw     []Middleware
}

// WithMiddleware orders the given middleware by function name so that
// Logger runs outermost, then Errors, then any custom middleware, with
// Panics innermost. The order they are passed in does not matter.
func WithMiddleware(mw ...Middleware) Option {
	type ordered struct {
		priority int
		fn       Middleware
	}

	sorted := make([]ordered, 0, len(mw))
	for _, m := range mw {
		switch name(m) {
		case "Logger":
			sorted = append(sorted, ordered{priority: 1, fn: m})
		case "Errors":
			sorted = append(sorted, ordered{priority: 2, fn: m})
		case "Panics":
			sorted = append(sorted, ordered{priority: 100, fn: m})
		default:
			sorted = append(sorted, ordered{priority: 3, fn: m})
		}
	}

	slices.SortStableFunc(sorted, func(a, b ordered) int {
		return a.priority - b.priority
	})

	return func(opts *options) {
		for _, o := range sorted {
			opts.mw = append(opts.mw, o.fn)
		}
	}
}

// WithTracer injects the given tracer into the App.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) {
		opts.tracer = tracer
	}
}

// WithLogger sets the logger used by the App for internal errors.
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// name returns the name of the function that built mw, e.g. "Logger"
// for the closure returned by middleware.Logger.
func name(mw Middleware) string {
	fnName := runtime.FuncForPC(reflect.ValueOf(mw).Pointer()).Name()

	if i := strings.LastIndex(fnName, "/"); i >= 0 {
		fnName = fnName[i+1:]
	}

	// "middleware.Logger.func1"
	parts := strings.Split(fnName, ".")
	if len(parts) >= 2 {
		return parts[1]
	}

	return fnName
}
