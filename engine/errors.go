package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"github.com/adamwoolhether/bookfetch/client"
	"github.com/adamwoolhether/bookfetch/client/download"
)

var (
	// ErrCancelled is returned by [Engine.Run] when the run was interrupted.
	ErrCancelled = errors.New("session cancelled")
	// ErrNoCredential is returned by [Engine.Run] when no bearer token is
	// available. No task is dispatched.
	ErrNoCredential = errors.New("no credential available")
	// ErrInvalidTransition reports a task status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidConcurrency reports a non-positive concurrency limit.
	ErrInvalidConcurrency = errors.New("concurrency limit must be positive")
	// ErrNoSources reports a session built from no usable input.
	ErrNoSources = errors.New("no sources given")
	// ErrSessionStarted reports a second Run of the same session.
	ErrSessionStarted = errors.New("session already started")
)

// Kind classifies why a task failed.
type Kind int

const (
	// ResolutionError means the input could not be mapped to a download.
	ResolutionError Kind = iota + 1
	// AuthError means the credential was rejected.
	AuthError
	// TransientNetworkError covers timeouts, resets and 5xx responses.
	TransientNetworkError
	// IntegrityError means the downloaded body failed size or checksum checks.
	IntegrityError
	// FilesystemError means a local directory, temp file or rename failed.
	FilesystemError
	// Cancelled means the run was interrupted before the task finished.
	Cancelled
)

var kindNames = map[Kind]string{
	ResolutionError:       "resolution",
	AuthError:             "auth",
	TransientNetworkError: "network",
	IntegrityError:        "integrity",
	FilesystemError:       "filesystem",
	Cancelled:             "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Retryable reports whether a failure of this kind consumes retry budget
// and re-enters Downloading.
func (k Kind) Retryable() bool {
	return k == TransientNetworkError || k == IntegrityError
}

// MarshalText renders the kind by name in reports and JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// TaskError is the classified error recorded on a failed task.
type TaskError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func newTaskError(kind Kind, op string, err error) *TaskError {
	return &TaskError{Kind: kind, Op: op, Err: err}
}

// Classify maps an error returned by the HTTP client, the download
// pipeline or the filesystem to a failure kind. Errors it does not
// recognise are treated as transient network failures.
func Classify(err error) Kind {
	if te, ok := errors.AsType[*TaskError](err); ok {
		return te.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled
	case errors.Is(err, client.ErrAuthFailure):
		return AuthError
	}

	if statusErr, ok := errors.AsType[*client.UnexpectedStatusError](err); ok {
		return classifyStatus(statusErr.StatusCode)
	}

	switch {
	case errors.Is(err, download.ErrChecksumMismatch),
		errors.Is(err, download.ErrSizeMismatch),
		errors.Is(err, download.ErrContentLengthMismatch):
		return IntegrityError
	case errors.Is(err, download.ErrFilesystem):
		return FilesystemError
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return TransientNetworkError
	}

	if netErr, ok := errors.AsType[net.Error](err); ok && netErr.Timeout() {
		return TransientNetworkError
	}
	if _, ok := errors.AsType[*url.Error](err); ok {
		return TransientNetworkError
	}
	if _, ok := errors.AsType[*fs.PathError](err); ok {
		return FilesystemError
	}

	return TransientNetworkError
}

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return AuthError
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return TransientNetworkError
	default:
		return ResolutionError
	}
}
