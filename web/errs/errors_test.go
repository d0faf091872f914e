package errs_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/adamwoolhether/bookfetch/web/errs"
)

func TestErrors(t *testing.T) {
	tests := map[string]struct {
		err      *errs.Error
		code     int
		internal bool
	}{
		"not found": {err: errs.New(http.StatusNotFound, fmt.Errorf("task 7 not found")), code: http.StatusNotFound},
		"internal":  {err: errs.NewInternal(fmt.Errorf("snapshot failed")), code: http.StatusInternalServerError, internal: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Fatalf("Code = %d, want %d", tc.err.Code, tc.code)
			}
			if tc.err.IsInternal() != tc.internal {
				t.Fatalf("IsInternal = %v, want %v", tc.err.IsInternal(), tc.internal)
			}
			if !strings.HasPrefix(tc.err.Caller, "errs_test.TestErrors errors_test.go:") {
				t.Fatalf("Caller = %q, want the test function and file", tc.err.Caller)
			}
		})
	}
}

func TestError_JSON(t *testing.T) {
	data, err := json.Marshal(errs.New(http.StatusBadRequest, fmt.Errorf("unknown status \"done\"")))
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if len(m) != 2 {
		t.Fatalf("keys = %v, want only code and message", m)
	}
	if m["code"] != float64(http.StatusBadRequest) {
		t.Fatalf("code = %v, want %d", m["code"], http.StatusBadRequest)
	}
	if m["message"] != `unknown status "done"` {
		t.Fatalf("message = %v", m["message"])
	}
}

func TestError_AsType(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", errs.New(http.StatusNotFound, fmt.Errorf("gone")))

	appErr, ok := errors.AsType[*errs.Error](wrapped)
	if !ok {
		t.Fatal("expected *errs.Error in chain")
	}
	if appErr.Error() != "gone" {
		t.Fatalf("Error() = %q, want %q", appErr.Error(), "gone")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("reporter closed")

	err := fmt.Errorf("summary: %w", errs.NewInternal(cause))
	if !errors.Is(err, cause) {
		t.Fatalf("expected %v in chain of %v", cause, err)
	}
}
