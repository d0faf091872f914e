package download

import (
	"errors"
	"fmt"
)

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = errors.New("content length mismatch")
	// ErrSizeMismatch indicates the file size did not match the expected size.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = errors.New("download cancelled")
	// ErrFilesystem marks failures creating, writing or renaming local files.
	ErrFilesystem = errors.New("filesystem")
	// ErrUnsupportedAlgorithm is returned for a checksum algorithm without a hash.
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fsError tags err as a local filesystem failure while keeping the
// underlying *fs.PathError reachable through errors.As.
func fsError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFilesystem, op, err)
}
