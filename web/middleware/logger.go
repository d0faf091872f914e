// Package middleware holds the mux middleware the status server runs
// every request through.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/bookfetch/web/mux"
)

// Logger logs the start and completion of every request at debug level,
// so polling clients do not flood the download log.
func Logger(log *slog.Logger) mux.Middleware {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := mux.GetValues(ctx)

			target := r.URL.Path
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}

			reqLog := log.With("trace_id", v.TraceID, "route", v.Route, "method", r.Method, "path", target, "remoteaddr", r.RemoteAddr)
			reqLog.Debug("request started")

			err := handler(ctx, w, r)

			reqLog.Debug("request completed", "statusCode", v.StatusCode, "since", v.Elapsed().String())

			return err
		}

		return h
	}

	return m
}
