package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/adamwoolhether/bookfetch/web/mux"
)

// Panics recovers a panicking handler. The request and the stack go into
// the returned error, which Errors logs and answers as a 500.
func Panics() mux.Middleware {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err = fmt.Errorf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
