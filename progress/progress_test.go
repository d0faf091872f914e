package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/adamwoolhether/bookfetch/engine"
)

func TestReporter_SnapshotOrder(t *testing.T) {
	r := New()

	r.Report(Update{TaskID: "b", Source: "src-b", Status: engine.Pending, Total: -1})
	r.Report(Update{TaskID: "a", Source: "src-a", Status: engine.Pending, Total: -1})
	r.Report(Update{TaskID: "b", Source: "src-b", Name: "b.pdf", Status: engine.Downloading, Bytes: 10, Total: 100, Attempt: 1})

	want := []TaskState{
		{ID: "b", Source: "src-b", Name: "b.pdf", Status: engine.Downloading, Bytes: 10, Total: 100, Attempt: 1},
		{ID: "a", Source: "src-a", Status: engine.Pending, Total: -1},
	}

	got := r.Snapshot()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(TaskState{}, "UpdatedAt")); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestReporter_SnapshotIsCopy(t *testing.T) {
	r := New()
	r.Report(Update{TaskID: "a", Status: engine.Pending})

	snap := r.Snapshot()
	snap[0].Status = engine.Completed

	ts, ok := r.Task("a")
	if !ok {
		t.Fatal("expected task a to exist")
	}
	if ts.Status != engine.Pending {
		t.Errorf("snapshot mutation leaked into reporter: %v", ts.Status)
	}

	if _, ok := r.Task("missing"); ok {
		t.Error("expected unknown task to be absent")
	}
}

func TestReporter_Error(t *testing.T) {
	r := New()

	taskErr := &engine.TaskError{Kind: engine.AuthError, Op: "download", Err: errors.New("401")}
	r.Report(Update{TaskID: "a", Status: engine.Failed, Err: taskErr})

	ts, _ := r.Task("a")
	if ts.ErrKind != engine.AuthError {
		t.Errorf("expected kind %v, got %v", engine.AuthError, ts.ErrKind)
	}
	if ts.Err != taskErr.Error() {
		t.Errorf("expected error %q, got %q", taskErr.Error(), ts.Err)
	}

	// A later update without an error clears it.
	r.Report(Update{TaskID: "a", Status: engine.Downloading, Attempt: 2})
	ts, _ = r.Task("a")
	if ts.Err != "" || ts.ErrKind != 0 {
		t.Errorf("expected error to be cleared, got %v %q", ts.ErrKind, ts.Err)
	}
}

func TestReporter_Counts(t *testing.T) {
	r := New()

	updates := []Update{
		{TaskID: "1", Status: engine.Pending},
		{TaskID: "2", Status: engine.Resolving},
		{TaskID: "3", Status: engine.Downloading, Bytes: 40},
		{TaskID: "4", Status: engine.Failed, Retrying: true, Bytes: 5},
		{TaskID: "5", Status: engine.Skipped},
		{TaskID: "6", Status: engine.Completed, Bytes: 100},
		{TaskID: "7", Status: engine.Failed},
	}
	for _, u := range updates {
		r.Report(u)
	}

	want := Counts{Total: 7, Pending: 1, Active: 2, Retrying: 1, Skipped: 1, Completed: 1, Failed: 1, Bytes: 145}
	if diff := cmp.Diff(want, r.Counts()); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestReporter_ChangedCoalesces(t *testing.T) {
	r := New()

	for i := range 50 {
		r.Report(Update{TaskID: "a", Status: engine.Downloading, Bytes: int64(i)})
	}

	select {
	case <-r.Changed():
	default:
		t.Fatal("expected a change signal")
	}

	select {
	case <-r.Changed():
		t.Fatal("expected updates to coalesce into one signal")
	default:
	}
}

func TestReporter_Concurrent(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Go(func() {
			id := string(rune('a' + w))
			for i := range 100 {
				r.Report(Update{TaskID: id, Status: engine.Downloading, Bytes: int64(i)})
				_ = r.Snapshot()
			}
		})
	}
	wg.Wait()

	if got := r.Counts().Total; got != 8 {
		t.Errorf("expected 8 tasks, got %d", got)
	}
}

func TestWatch(t *testing.T) {
	r := New()
	r.Report(Update{TaskID: "a", Status: engine.Downloading})

	ctx, cancel := context.WithCancel(t.Context())

	var (
		mu    sync.Mutex
		calls [][]TaskState
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, r, 5*time.Millisecond, func(s []TaskState) {
			mu.Lock()
			calls = append(calls, s)
			mu.Unlock()
		})
	}()

	time.Sleep(30 * time.Millisecond)
	r.Report(Update{TaskID: "a", Status: engine.Completed})
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()

	if len(calls) < 2 {
		t.Fatalf("expected an initial and a final render, got %d", len(calls))
	}
	last := calls[len(calls)-1]
	if len(last) != 1 || last[0].Status != engine.Completed {
		t.Errorf("expected final render to show completion, got %+v", last)
	}
}

func TestTaskState_Percent(t *testing.T) {
	testCases := []struct {
		name string
		ts   TaskState
		want float64
	}{
		{name: "half", ts: TaskState{Bytes: 50, Total: 100}, want: 50},
		{name: "unknown total", ts: TaskState{Bytes: 50, Total: -1}, want: -1},
		{name: "unknown total completed", ts: TaskState{Bytes: 50, Total: -1, Status: engine.Completed}, want: 100},
		{name: "clamped", ts: TaskState{Bytes: 150, Total: 100}, want: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ts.Percent(); got != tc.want {
				t.Errorf("Percent() = %v, want %v", got, tc.want)
			}
		})
	}
}
