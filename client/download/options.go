package download

import (
	"errors"
	"time"
)

// DefaultProgressInterval is the minimum gap between two progress
// callbacks for the same download.
const DefaultProgressInterval = 200 * time.Millisecond

// ProgressFunc receives the bytes written so far and the total, which is
// -1 when the server did not announce a length.
type ProgressFunc func(transferred, total int64)

// Option defines optional settings for downloading files.
//
// WithExpected enables size and checksum validation of the downloaded file.
//
// WithProgress registers a callback invoked at most once per interval
// while the body streams, plus once when it finishes.
//
// WithVerifyHook registers a callback invoked after the body has been
// fully written and before it is validated.
//
// WithKeepCorrupt moves a file that fails validation to the given path
// instead of deleting it.
type Option func(*options) error

type options struct {
	expected         Expected
	progress         ProgressFunc
	progressInterval time.Duration
	onVerify         func()
	keepCorrupt      string
}

func WithExpected(exp Expected) Option {
	return func(opts *options) error {
		if _, err := exp.NewHash(); err != nil {
			return err
		}

		opts.expected = exp
		return nil
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}

		opts.progress = fn
		return nil
	}
}

func WithProgressInterval(d time.Duration) Option {
	return func(opts *options) error {
		if d < 0 {
			return errors.New("progress interval must not be negative")
		}

		opts.progressInterval = d
		return nil
	}
}

func WithVerifyHook(fn func()) Option {
	return func(opts *options) error {
		opts.onVerify = fn
		return nil
	}
}

func WithKeepCorrupt(path string) Option {
	return func(opts *options) error {
		if path == "" {
			return errors.New("corrupt file path must not be empty")
		}

		opts.keepCorrupt = path
		return nil
	}
}
