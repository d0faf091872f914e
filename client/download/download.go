package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// TempPrefix names the temporary files a download streams into. They live
// next to the destination so the final rename never crosses filesystems.
const TempPrefix = ".bookfetch-"

// Handle streams body to a temp file in the same directory as destPath,
// validates it against the expected size and checksum, and then renames it
// to destPath. On any error the temp file is removed, so destPath is only
// ever replaced by a complete, validated file. It returns the number of
// bytes streamed.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) (int64, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return 0, fmt.Errorf("applying option: %w", err)
		}
	}

	verifier, err := newChecksumVerifier(opts.expected)
	if err != nil {
		return 0, err
	}

	body = &contextReader{ctx: ctx, r: body}

	file, err := os.CreateTemp(filepath.Dir(destPath), TempPrefix+"*.part")
	if err != nil {
		return 0, fsError("creating temp file", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	total := contentLength
	if total < 0 && opts.expected.HasSize() {
		total = opts.expected.Size
	}

	var writer io.Writer = fileWriter{w: file}
	if verifier != nil {
		writer = io.MultiWriter(writer, verifier)
	}

	pw := newProgressWriter(writer, opts.progress, total, opts.progressInterval)

	n, err := io.Copy(pw, body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return n, fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}
		if _, ok := errors.AsType[*writeError](err); ok {
			return n, fsError("writing temp file", err)
		}

		return n, fmt.Errorf("copying file body: %w", err)
	}
	pw.flush()

	if contentLength >= 0 && n != contentLength {
		return n, &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if opts.onVerify != nil {
		opts.onVerify()
	}

	if err := errors.Join(opts.expected.MatchSize(n), verifier.Verify()); err != nil {
		if opts.keepCorrupt != "" {
			keepCorrupt(file, opts.keepCorrupt, logger)
		}
		return n, err
	}

	if err := file.Sync(); err != nil {
		return n, fsError("syncing temp file", err)
	}
	if err := file.Close(); err != nil {
		return n, fsError("closing temp file", err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return n, fsError("renaming temp file", err)
	}

	successful = true

	return n, nil
}

// keepCorrupt moves a failed temp file aside for inspection. The deferred
// cleanup in Handle then finds nothing to remove.
func keepCorrupt(file *os.File, dest string, logger *slog.Logger) {
	if err := file.Close(); err != nil {
		logger.Error("closing corrupt temp file", "error", err)
	}
	if err := os.Rename(file.Name(), dest); err != nil {
		logger.Error("keeping corrupt file", "path", dest, "error", err)
		return
	}

	logger.Warn("kept corrupt download for inspection", "path", dest)
}

// CleanStale removes temp files left in dir by a download that never
// finished, for example because the process was killed.
func CleanStale(dir string, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fsError("reading dir", err)
	}

	var removed int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, TempPrefix) || !strings.HasSuffix(name, ".part") {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logger.Warn("removing stale temp file", "path", path, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

// writeError separates local write failures from body read failures,
// which io.Copy otherwise reports the same way.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

type fileWriter struct{ w io.Writer }

func (fw fileWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err != nil {
		return n, &writeError{err: err}
	}

	return n, nil
}

// contextReader aborts a copy as soon as ctx ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
