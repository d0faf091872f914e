package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adamwoolhether/bookfetch/client/download"
)

// Run executes every task of s on a pool of exactly s.ConcurrencyLimit
// workers, dispatching in input order, and returns once every task is
// terminal.
//
// When ctx is cancelled no further task is dispatched and the ones never
// dispatched fail as Cancelled. Tasks already running carry on until they
// finish or the hard timeout elapses, whichever comes first; Run then
// returns the summary together with ErrCancelled.
func (e *Engine) Run(ctx context.Context, s *Session) (Summary, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Summary{}, ErrSessionStarted
	}

	token, err := e.token(ctx)
	if err != nil {
		return Summary{}, err
	}

	if n, err := download.CleanStale(e.outputDir, e.logger); err != nil {
		e.logger.Warn("cleaning stale temp files", "dir", e.outputDir, "error", err)
	} else if n > 0 {
		e.logger.Info("removed stale temp files", "dir", e.outputDir, "count", n)
	}

	filename := ""
	if len(s.Tasks) == 1 {
		filename = e.filename
	}

	for _, t := range s.Tasks {
		e.report(t, false)
	}

	e.logger.Info("session started", "session", s.ID, "tasks", len(s.Tasks), "concurrency", s.ConcurrencyLimit)

	// Workers run detached from ctx so an interrupt does not tear down
	// writes in progress. workCtx is cancelled once the hard timeout
	// after an interrupt elapses.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	done := make(chan struct{})
	defer close(done)
	go e.enforceHardTimeout(ctx, done, cancelWork)

	run := runState{
		token:     token,
		interrupt: ctx,
		filename:  filename,
	}

	work := make(chan *Task)
	var wg sync.WaitGroup
	for range s.ConcurrencyLimit {
		wg.Go(func() {
			for t := range work {
				e.process(workCtx, &run, t)
			}
		})
	}

	dispatched := e.dispatch(ctx, s.Tasks, work)
	close(work)

	for _, t := range s.Tasks[dispatched:] {
		_ = t.fail(newTaskError(Cancelled, "dispatch", context.Cause(ctx)))
		e.report(t, false)
		e.observer.Finished(*t, 0)
	}

	wg.Wait()

	sum := summarize(s.Tasks)

	e.logger.Info("session finished", "session", s.ID,
		"completed", sum.Completed, "skipped", sum.Skipped, "failed", sum.Failed, "total", sum.Total)

	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	return sum, nil
}

// token returns the bearer token for one run. A provider holding nothing
// is refreshed first, which picks up a token stored since it was last read.
func (e *Engine) token(ctx context.Context) (string, error) {
	if tok, ok := e.creds.Token(); ok && strings.TrimSpace(tok) != "" {
		return tok, nil
	}

	tok, err := e.creds.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoCredential, err)
	}
	if strings.TrimSpace(tok) == "" {
		return "", ErrNoCredential
	}

	e.logger.Info("credential refreshed")

	return tok, nil
}

// dispatch feeds tasks to the workers in order until it runs out or ctx
// ends, returning how many were handed out.
func (e *Engine) dispatch(ctx context.Context, tasks []*Task, work chan<- *Task) int {
	for i, t := range tasks {
		if ctx.Err() != nil {
			return i
		}

		select {
		case work <- t:
		case <-ctx.Done():
			return i
		}
	}

	return len(tasks)
}

func (e *Engine) enforceHardTimeout(ctx context.Context, done <-chan struct{}, cancel context.CancelFunc) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	e.logger.Warn("interrupted, waiting for running tasks", "timeout", e.hardTimeout.String())

	timer := time.NewTimer(e.hardTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		e.logger.Warn("hard timeout elapsed, aborting running tasks")
		cancel()
	}
}

// runState is shared read-only by the workers of one run.
type runState struct {
	token     string
	interrupt context.Context
	filename  string
}

func (r *runState) interrupted() bool {
	return r.interrupt.Err() != nil
}
