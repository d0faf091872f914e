package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/bookfetch/client"
	"github.com/adamwoolhether/bookfetch/client/download"
	"github.com/adamwoolhether/bookfetch/resolve"
)

// process runs one task to a terminal status.
func (e *Engine) process(ctx context.Context, run *runState, t *Task) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "bookfetch.task", trace.WithAttributes(
		attribute.String("task.id", t.ID),
		attribute.String("task.source", t.Source),
	))
	defer span.End()

	e.execute(ctx, run, t)

	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("task.status", t.Status.String()),
		attribute.Int("task.attempt", t.Attempt),
		attribute.Int64("task.bytes", t.BytesTransferred),
	)

	switch t.Status {
	case Completed:
		e.logger.Info("task completed", "task", t.ID, "path", t.TargetPath, "bytes", t.BytesTransferred, "elapsed", elapsed.String())
	case Skipped:
		e.logger.Info("task skipped, local file is valid", "task", t.ID, "path", t.TargetPath)
	default:
		span.RecordError(t.Err)
		span.SetStatus(codes.Error, t.Err.Kind.String())
		e.logger.Error("task failed", "task", t.ID, "source", t.Source, "kind", t.Err.Kind, "error", t.Err.Err)
	}

	e.observer.Finished(*t, elapsed)
}

func (e *Engine) execute(ctx context.Context, run *runState, t *Task) {
	// A worker may pick a task up in the same instant the run is
	// interrupted.
	if run.interrupted() {
		e.failTask(t, newTaskError(Cancelled, "dispatch", context.Cause(run.interrupt)))
		return
	}

	if !e.advance(t, Resolving) {
		return
	}

	desc, terr := e.resolveTask(ctx, t)
	if terr != nil {
		e.failTask(t, terr)
		return
	}
	e.apply(t, desc, run.filename)

	if !e.advance(t, Checking) {
		return
	}

	if e.localValid(t) {
		e.advance(t, Skipped)
		return
	}

	if err := os.MkdirAll(filepath.Dir(t.TargetPath), 0o755); err != nil {
		e.failTask(t, newTaskError(FilesystemError, "creating output dir", err))
		return
	}

	e.fetchWithRetry(ctx, run, t)
}

func (e *Engine) resolveTask(ctx context.Context, t *Task) (resolve.Descriptor, *TaskError) {
	if t.identErr != nil {
		return resolve.Descriptor{}, newTaskError(ResolutionError, "identify", t.identErr)
	}

	desc, err := e.resolver.Resolve(ctx, t.Source)
	if err != nil {
		kind := Classify(err)
		if kind != AuthError && kind != Cancelled {
			kind = ResolutionError
		}
		return resolve.Descriptor{}, newTaskError(kind, "resolve", err)
	}

	if err := desc.Validate(); err != nil {
		return resolve.Descriptor{}, newTaskError(ResolutionError, "resolve", err)
	}

	return desc, nil
}

func (e *Engine) apply(t *Task, desc resolve.Descriptor, filename string) {
	t.ResolvedURL = desc.URL
	t.Name = desc.Filename
	if filename != "" {
		t.Name = filepath.Base(filename)
	}

	if desc.Size > 0 {
		t.ExpectedSize = desc.Size
		t.TotalBytes = desc.Size
	}
	t.ExpectedChecksum = desc.Checksum
	t.ChecksumAlgorithm = desc.Algorithm
	t.TargetPath = filepath.Join(e.outputDir, t.Name)
}

func (t *Task) expected() download.Expected {
	return download.Expected{
		Size:      t.ExpectedSize,
		Checksum:  t.ExpectedChecksum,
		Algorithm: t.ChecksumAlgorithm,
	}
}

// localValid reports whether the file at the target path already
// satisfies the descriptor.
func (e *Engine) localValid(t *Task) bool {
	ok, err := download.Verify(t.TargetPath, t.expected())
	if err != nil {
		e.logger.Warn("verifying local file", "task", t.ID, "path", t.TargetPath, "error", err)
		return false
	}

	return ok
}

func (e *Engine) fetchWithRetry(ctx context.Context, run *runState, t *Task) {
	span := trace.SpanFromContext(ctx)

	for {
		t.Err = nil
		t.BytesTransferred = 0
		t.TotalBytes = t.ExpectedSize
		if !e.advance(t, Downloading) {
			return
		}

		err := e.fetch(ctx, run, t)
		if err == nil {
			e.observer.Attempt(nil)
			e.advance(t, Completed)
			return
		}

		terr := e.classify(ctx, t, err)
		e.observer.Attempt(terr)

		if !terr.Kind.Retryable() {
			e.failTask(t, terr)
			return
		}

		t.Attempt++
		if t.Attempt >= e.policy.MaxAttempts {
			e.failTask(t, terr)
			return
		}
		if run.interrupted() {
			e.failTask(t, newTaskError(Cancelled, "retry", terr))
			return
		}

		var retryAfter time.Duration
		if statusErr, ok := errors.AsType[*client.UnexpectedStatusError](err); ok {
			retryAfter = statusErr.RetryAfter
		}
		delay := e.policy.wait(t.Attempt, retryAfter, rand.Float64())

		if ferr := t.fail(terr); ferr != nil {
			e.logger.Error("recording retryable failure", "task", t.ID, "error", ferr)
		}
		e.report(t, true)

		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("task.attempt", t.Attempt),
			attribute.String("error.kind", terr.Kind.String()),
		))
		e.logger.Warn("retrying task", "task", t.ID, "attempt", t.Attempt, "max_attempts", e.policy.MaxAttempts,
			"kind", terr.Kind, "delay", delay.String(), "error", terr.Err)

		if !sleep(ctx, run.interrupt, delay) {
			e.failTask(t, newTaskError(Cancelled, "retry", terr))
			return
		}
	}
}

// fetch performs one download attempt into the target path.
func (e *Engine) fetch(ctx context.Context, run *runState, t *Task) error {
	u, err := url.Parse(t.ResolvedURL)
	if err != nil {
		return newTaskError(ResolutionError, "parsing url", err)
	}

	req, err := client.Request(ctx, u, http.MethodGet,
		client.WithHeaders(map[string][]string{"Authorization": {"Bearer " + run.token}}),
	)
	if err != nil {
		return newTaskError(ResolutionError, "building request", err)
	}

	opts := []client.DownloadOption{
		client.WithExpected(t.expected()),
		client.WithProgress(func(done, total int64) {
			t.setProgress(done, total)
			e.report(t, false)
		}),
		client.WithVerifyHook(func() {
			e.advance(t, Verifying)
		}),
	}
	if e.progressInterval > 0 {
		opts = append(opts, download.WithProgressInterval(e.progressInterval))
	}
	if e.keepCorrupt && t.Attempt+1 >= e.policy.MaxAttempts {
		opts = append(opts, client.WithKeepCorrupt(t.TargetPath+".corrupt"))
	}

	n, err := e.fetcher.Download(req, http.StatusOK, t.TargetPath, opts...)
	t.setProgress(n, t.TotalBytes)

	return err
}

func (e *Engine) classify(ctx context.Context, t *Task, err error) *TaskError {
	op := "download"
	if t.Status == Verifying {
		op = "verify"
	}

	if ctx.Err() != nil {
		return newTaskError(Cancelled, op, err)
	}
	if terr, ok := errors.AsType[*TaskError](err); ok {
		return terr
	}

	return newTaskError(Classify(err), op, err)
}

// advance applies a transition and reports it. A rejected transition
// fails the task.
func (e *Engine) advance(t *Task, to Status) bool {
	from := t.Status
	if err := t.advance(to, e.policy.MaxAttempts); err != nil {
		e.logger.Error("rejected task transition", "task", t.ID, "error", err)
		t.Status = Failed
		if t.Err == nil {
			t.Err = newTaskError(FilesystemError, "transition", err)
		}
		e.report(t, false)
		return false
	}

	e.logger.Debug("task transition", "task", t.ID, "from", from, "to", to)
	e.report(t, false)
	return true
}

func (e *Engine) failTask(t *Task, terr *TaskError) {
	if err := t.fail(terr); err != nil {
		e.logger.Error("rejected task failure", "task", t.ID, "error", err)
		t.Status = Failed
		t.Err = terr
	}
	e.report(t, false)
}

func (e *Engine) report(t *Task, retrying bool) {
	e.reporter.Report(Update{
		TaskID:   t.ID,
		Source:   t.Source,
		Name:     t.Name,
		Bytes:    t.BytesTransferred,
		Total:    t.TotalBytes,
		Status:   t.Status,
		Attempt:  t.Attempt,
		Retrying: retrying,
		Err:      t.Err,
	})
}

// sleep waits for d unless ctx or interrupt ends first.
func sleep(ctx, interrupt context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-interrupt.Done():
		return false
	}
}
