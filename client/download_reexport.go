package client

import (
	"github.com/adamwoolhether/bookfetch/client/download"
)

// DownloadOption is a functional option for [Client.Download].
type DownloadOption = download.Option

type (
	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error

	// Expected describes what a downloaded file must look like.
	Expected = download.Expected
)

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrSizeMismatch indicates the file size did not match the expected size.
	ErrSizeMismatch = download.ErrSizeMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = download.ErrDownloadCancelled

	// ErrFilesystem indicates a local filesystem operation failed.
	ErrFilesystem = download.ErrFilesystem
)

// WithExpected enables size and checksum validation of the downloaded file.
func WithExpected(exp Expected) DownloadOption { return download.WithExpected(exp) }

// WithProgress registers a callback receiving throttled progress updates.
func WithProgress(fn download.ProgressFunc) DownloadOption { return download.WithProgress(fn) }

// WithVerifyHook registers a callback invoked just before validation.
func WithVerifyHook(fn func()) DownloadOption { return download.WithVerifyHook(fn) }

// WithKeepCorrupt keeps a file failing validation at path.
func WithKeepCorrupt(path string) DownloadOption { return download.WithKeepCorrupt(path) }
