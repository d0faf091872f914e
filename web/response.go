// Package web holds the response helpers shared by the status handlers.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/adamwoolhether/bookfetch/web/errs"
	"github.com/adamwoolhether/bookfetch/web/mux"
)

// RespondJSON writes data as the JSON body of a statusCode response.
// Snapshots go stale within a second, so responses are never cached.
func RespondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	mux.SetStatusCode(ctx, statusCode)

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}

	return nil
}

func RespondError(ctx context.Context, w http.ResponseWriter, err *errs.Error) error {
	return RespondJSON(ctx, w, err.Code, err)
}
