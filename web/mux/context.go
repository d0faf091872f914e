package mux

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// BaseValues travel with one routed request. Route is the pattern that
// matched, such as "GET /v1/tasks/{id...}".
type BaseValues struct {
	TraceID    string
	Route      string
	Now        time.Time
	StatusCode int
}

// Elapsed is the time since the request was routed.
func (v *BaseValues) Elapsed() time.Duration {
	return time.Since(v.Now)
}

// SetStatusCode records the status written for the request. Outside of a
// routed request it does nothing.
func SetStatusCode(ctx context.Context, statusCode int) {
	if v, ok := ctx.Value(ctxKey{}).(*BaseValues); ok {
		v.StatusCode = statusCode
	}
}

// GetValues returns the request's BaseValues. Outside of a routed request
// the trace ID is the nil UUID.
func GetValues(ctx context.Context) *BaseValues {
	if v, ok := ctx.Value(ctxKey{}).(*BaseValues); ok {
		return v
	}

	return &BaseValues{
		TraceID: uuid.Nil.String(),
		Now:     time.Now(),
	}
}

func GetTraceID(ctx context.Context) string {
	return GetValues(ctx).TraceID
}

func setValues(ctx context.Context, v *BaseValues) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}
