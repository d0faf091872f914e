package mux_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/bookfetch/web"
	"github.com/adamwoolhether/bookfetch/web/errs"
	"github.com/adamwoolhether/bookfetch/web/middleware"
	"github.com/adamwoolhether/bookfetch/web/mux"
)

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	return resp, string(body)
}

func TestApp_Get(t *testing.T) {
	app := mux.New()
	app.Get("/healthz", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return nil
	})

	srv := httptest.NewServer(app)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if body != "ok" {
		t.Fatalf("body = %q, want %q", body, "ok")
	}

	resp, err := http.Post(srv.URL+"/healthz", "", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestApp_PathValue(t *testing.T) {
	app := mux.New()
	app.Get("/v1/tasks/{id}", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.Write([]byte(r.PathValue("id")))
		return nil
	})

	srv := httptest.NewServer(app)
	defer srv.Close()

	if _, body := get(t, srv.URL+"/v1/tasks/42"); body != "42" {
		t.Fatalf("body = %q, want %q", body, "42")
	}
}

func TestApp_HandleRaw(t *testing.T) {
	raw := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, "bookfetch_tasks_total 3\n")
	})

	app := mux.New()
	app.HandleRaw(http.MethodGet, "/metrics", raw)

	srv := httptest.NewServer(app)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "bookfetch_tasks_total") {
		t.Fatalf("body = %q", body)
	}
}

func TestWithMiddleware_Order(t *testing.T) {
	var order []string
	track := func(name string) mux.Middleware {
		return func(handler mux.Handler) mux.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	routeMW := track("route")

	// Panics is passed first but must run innermost of the App middleware.
	app := mux.New(mux.WithMiddleware(middleware.Panics(), track("custom"), middleware.Logger(discardLogger())))
	app.Get("/ordered", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		order = append(order, "handler")
		panic("after handler")
	}, routeMW)

	srv := httptest.NewServer(app)
	defer srv.Close()

	get(t, srv.URL+"/ordered")

	if diff := cmp.Diff([]string{"custom", "route", "handler"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestApp_ContextValues(t *testing.T) {
	var v mux.BaseValues

	app := mux.New()
	app.Get("/ctx", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v = *mux.GetValues(ctx)
		w.WriteHeader(http.StatusOK)
		return nil
	})

	srv := httptest.NewServer(app)
	defer srv.Close()

	get(t, srv.URL+"/ctx")

	if v.TraceID == "" || v.TraceID == "00000000-0000-0000-0000-000000000000" {
		t.Errorf("TraceID = %q, want a generated id", v.TraceID)
	}
	if v.Now.IsZero() {
		t.Error("Now should be set")
	}
	if v.Route != "GET /ctx" {
		t.Errorf("Route = %q, want %q", v.Route, "GET /ctx")
	}
}

// newFullStackApp creates an App wired with Logger, Errors and Panics
// and a captured log buffer.
func newFullStackApp(t *testing.T) (*mux.App, *httptest.Server, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	app := mux.New(
		mux.WithLogger(log),
		mux.WithMiddleware(
			middleware.Logger(log),
			middleware.Errors(log),
			middleware.Panics(),
		),
	)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	return app, srv, &buf
}

func TestApp_FullStack(t *testing.T) {
	type payload struct {
		Total int `json:"total"`
	}

	tests := map[string]struct {
		handler mux.Handler
		code    int
		body    string
		logs    []string
	}{
		"success": {
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return web.RespondJSON(ctx, w, http.StatusOK, payload{Total: 3})
			},
			code: http.StatusOK,
			body: `{"total":3}`,
			logs: []string{"request started", "request completed", "statusCode=200", `route="GET /route"`},
		},
		"not found": {
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return errs.New(http.StatusNotFound, fmt.Errorf("task 9 not found"))
			},
			code: http.StatusNotFound,
			body: `{"code":404,"message":"task 9 not found"}`,
			logs: []string{"statusCode=404"},
		},
		"internal": {
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return errs.NewInternal(fmt.Errorf("secret detail"))
			},
			code: http.StatusInternalServerError,
			body: `{"code":500,"message":"Internal Server Error"}`,
			logs: []string{"statusCode=500", "secret detail"},
		},
		"panic": {
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				panic("boom")
			},
			code: http.StatusInternalServerError,
			logs: []string{"panic serving GET /route: boom"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app, srv, logs := newFullStackApp(t)
			app.Get("/route", tc.handler)

			resp, body := get(t, srv.URL+"/route")
			if resp.StatusCode != tc.code {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.code)
			}
			if tc.body != "" && body != tc.body {
				t.Fatalf("body = %s, want %s", body, tc.body)
			}

			out := logs.String()
			for _, want := range tc.logs {
				if !strings.Contains(out, want) {
					t.Fatalf("log missing %q, got:\n%s", want, out)
				}
			}
			for line := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
				if strings.Contains(line, "request ") && !strings.Contains(line, "trace_id=") {
					t.Fatalf("log line missing trace_id: %s", line)
				}
			}
		})
	}
}

func TestApp_FullStack_JSONContentType(t *testing.T) {
	app, srv, _ := newFullStackApp(t)
	app.Get("/json", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.RespondJSON(ctx, w, http.StatusOK, map[string]int{"failed": 0})
	})

	resp, body := get(t, srv.URL+"/json")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", cc)
	}

	var m map[string]int
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
