package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/bookfetch/validate"
	"github.com/adamwoolhether/bookfetch/web"
	"github.com/adamwoolhether/bookfetch/web/errs"
	"github.com/adamwoolhether/bookfetch/web/mux"
)

// Errors renders errors coming out of the call chain as JSON. Query
// validation failures become a 400 listing the offending fields, any
// error that is not an *errs.Error is answered as an opaque 500.
func Errors(log *slog.Logger) mux.Middleware {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			reqLog := log.With("trace_id", mux.GetTraceID(ctx))

			if fields := validate.GetFieldErrors(err); fields != nil {
				reqLog.Info("invalid request", "path", r.URL.Path, "fields", fields.Error())
				return web.RespondJSON(ctx, w, http.StatusBadRequest, fields)
			}

			appErr, ok := errors.AsType[*errs.Error](err)
			if !ok {
				appErr = errs.NewInternal(err)
			}

			reqLog.Error(err.Error(), "caller", appErr.Caller)

			if appErr.IsInternal() {
				appErr.Message = http.StatusText(appErr.Code)
			}

			return web.RespondError(ctx, w, appErr)
		}

		return h
	}

	return m
}
