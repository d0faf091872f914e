// Package errs carries the HTTP status of a failed status request
// together with the place in the code it failed.
package errs

import (
	"fmt"
	"net/http"
	"path"
	"runtime"
)

// Error is answered as {"code": ..., "message": ...}. Internal errors keep
// their message for the log and answer with the generic status text.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Caller  string `json:"-"`
	Err     error  `json:"-"`

	internal bool
}

// New wraps err with code. Its message is shown to the client.
func New(code int, err error) *Error {
	return build(code, err, false)
}

// NewInternal wraps err as a 500 whose message stays in the log.
func NewInternal(err error) *Error {
	return build(http.StatusInternalServerError, err, true)
}

// build records the caller of New or NewInternal.
func build(code int, err error, internal bool) *Error {
	caller := "unknown"
	if pc, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s %s:%d", path.Base(runtime.FuncForPC(pc).Name()), path.Base(file), line)
	}

	return &Error{
		Code:     code,
		Message:  err.Error(),
		Caller:   caller,
		Err:      err,
		internal: internal,
	}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInternal reports whether the message must be hidden from the client.
func (e *Error) IsInternal() bool {
	return e.internal
}
