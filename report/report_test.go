package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/bookfetch/engine"
	"github.com/adamwoolhether/bookfetch/progress"
)

func TestRenderer_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	states := []progress.TaskState{
		{ID: "a", Name: "a.pdf", Status: engine.Completed, Bytes: 2048, Total: 2048},
		{ID: "b", Source: "b-src", Status: engine.Downloading, Bytes: 10, Total: 100},
		{ID: "c", Name: "c.pdf", Status: engine.Failed, Retrying: true, Attempt: 1, ErrKind: engine.TransientNetworkError},
		{ID: "d", Name: "d.pdf", Status: engine.Failed, ErrKind: engine.AuthError, Err: "download: auth error: 401"},
	}

	r.Render(states)
	r.Render(states)

	want := "✓ a.pdf        2.0 KiB\n" +
		"✗ d.pdf        download: auth error: 401\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected no escape sequences outside a terminal")
	}
}

func TestRenderer_Line(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, true)

	testCases := map[string]struct {
		ts   progress.TaskState
		want string
	}{
		"pending":      {ts: progress.TaskState{Source: "src", Status: engine.Pending}, want: "· src          pending"},
		"downloading":  {ts: progress.TaskState{Name: "x.pdf", Status: engine.Downloading, Bytes: 512, Total: 1024}, want: "↓ x.pdf        [==========          ]  50% 512 B/1.0 KiB"},
		"unknown size": {ts: progress.TaskState{Name: "x.pdf", Status: engine.Downloading, Bytes: 512, Total: -1}, want: "↓ x.pdf        [????????????????????]      512 B"},
		"skipped":      {ts: progress.TaskState{Name: "x.pdf", Status: engine.Skipped}, want: "= x.pdf        already present"},
		"retrying":     {ts: progress.TaskState{Name: "x.pdf", Status: engine.Failed, Retrying: true, Attempt: 2, ErrKind: engine.IntegrityError}, want: "↻ x.pdf        retry 2: integrity"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := r.line(tc.ts, minNameWidth); got != tc.want {
				t.Errorf("line() =\n%q\nwant\n%q", got, tc.want)
			}
		})
	}
}

func TestRenderer_WideNames(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, true)

	states := []progress.TaskState{
		{Name: "数学七年级上册.pdf", Status: engine.Skipped},
		{Name: "math.pdf", Status: engine.Skipped},
		{Name: strings.Repeat("long-name-", 10) + ".pdf", Status: engine.Skipped},
	}

	width := r.nameWidth(states)
	if width != defaultWidth-45 {
		t.Fatalf("expected name column capped at %d, got %d", defaultWidth-45, width)
	}

	var widths []int
	for _, ts := range states {
		widths = append(widths, runewidth.StringWidth(r.line(ts, width)))
	}
	for _, w := range widths[1:] {
		if w != widths[0] {
			t.Errorf("lines are not aligned: %v", widths)
			break
		}
	}

	if line := r.line(states[2], width); !strings.Contains(line, "…") {
		t.Errorf("expected long name to be truncated: %q", line)
	}
}

func TestBytes(t *testing.T) {
	testCases := map[int64]string{
		0:                "0 B",
		1023:             "1023 B",
		1536:             "1.5 KiB",
		5 << 20:          "5.0 MiB",
		3 << 30:          "3.0 GiB",
	}

	for n, want := range testCases {
		if got := Bytes(n); got != want {
			t.Errorf("Bytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestRenderer_Summary(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	sum := engine.Summary{
		Completed: 1,
		Skipped:   1,
		Failed:    1,
		Total:     3,
		Bytes:     1 << 20,
		Failures: []engine.Failure{
			{ID: "x", Source: "https://example.com/x", Kind: engine.AuthError, Err: "download: auth error: 401"},
		},
	}

	r.Summary(sum, []string{"dup"}, 1500*time.Millisecond)

	out := buf.String()
	for _, want := range []string{
		"Done: 3 total, 1 completed, 1 skipped, 1 failed, 1.0 MiB in 1.5s",
		"1 duplicate input(s) ignored",
		"  [auth] https://example.com/x download: auth error: 401",
		"access token was rejected",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestWriteYAML(t *testing.T) {
	s, err := engine.NewSession([]string{"a", "b"}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}

	s.Tasks[0].Status = engine.Completed
	s.Tasks[0].TargetPath = "out/a.pdf"
	s.Tasks[0].BytesTransferred = 42
	s.Tasks[1].Status = engine.Failed
	s.Tasks[1].Attempt = 3
	s.Tasks[1].Err = &engine.TaskError{Kind: engine.TransientNetworkError, Op: "download", Err: errors.New("reset")}

	sum := engine.Summary{Completed: 1, Failed: 1, Total: 2, Bytes: 42}
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rep := NewSession(s, sum, started, started.Add(time.Minute))

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := WriteYAML(path, rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Session string `yaml:"session"`
		Summary struct {
			Completed int `yaml:"completed"`
			Failed    int `yaml:"failed"`
		} `yaml:"summary"`
		Tasks []map[string]any `yaml:"tasks"`
	}
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, data)
	}

	if got.Session != s.ID.String() {
		t.Errorf("expected session %s, got %s", s.ID, got.Session)
	}
	if got.Summary.Completed != 1 || got.Summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", got.Summary)
	}

	want := []map[string]any{
		{"id": "a", "source": "a", "path": "out/a.pdf", "status": "completed", "attempts": 0, "bytes": 42},
		{"id": "b", "source": "b", "status": "failed", "attempts": 3, "bytes": 0, "error_kind": "network", "error": "download: network error: reset"},
	}
	if diff := cmp.Diff(want, got.Tasks); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}

	if matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".report-*")); len(matches) != 0 {
		t.Errorf("expected temp report removed, found %v", matches)
	}
}
