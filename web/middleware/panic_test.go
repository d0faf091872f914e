package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamwoolhether/bookfetch/web/middleware"
)

func TestPanics(t *testing.T) {
	tests := map[string]struct {
		handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error
		want    []string
	}{
		"no panic": {
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return nil
			},
		},
		"recovered": {
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				panic("snapshot broke")
			},
			want: []string{"panic serving GET /v1/summary: snapshot broke", "goroutine"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			handler := middleware.Panics()(tc.handler)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/summary", nil)

			err := handler(r.Context(), w, r)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("expected error from recovered panic")
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Fatalf("error should contain %q, got: %s", want, err)
				}
			}
		})
	}
}
