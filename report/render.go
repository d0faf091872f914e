// Package report renders live progress and the end-of-run summary to a
// terminal, and writes the session report file.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/adamwoolhether/bookfetch/engine"
	"github.com/adamwoolhether/bookfetch/progress"
)

const (
	defaultWidth = 80
	barWidth     = 20
	minNameWidth = 12
)

// Renderer draws task states. On a terminal it redraws one line per task
// in place; anywhere else it prints each task once, when it finishes.
type Renderer struct {
	w     io.Writer
	tty   bool
	width int

	drawn   int
	printed map[string]bool

	ok, warn, bad, faint, bold *color.Color
}

// NewRenderer writes to w. Colors are used only on a terminal, and
// never when noColor is set or NO_COLOR is in the environment.
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	r := Renderer{
		w:       w,
		width:   defaultWidth,
		printed: make(map[string]bool),
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed),
		faint:   color.New(color.Faint),
		bold:    color.New(color.Bold),
	}

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			r.width = width
		}
	}

	useColor := r.tty && !noColor && os.Getenv("NO_COLOR") == ""
	for _, c := range []*color.Color{r.ok, r.warn, r.bad, r.faint, r.bold} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &r
}

// Render draws a snapshot. It is meant to be driven by [progress.Watch]
// from a single goroutine.
func (r *Renderer) Render(states []progress.TaskState) {
	if !r.tty {
		for _, ts := range states {
			if ts.Status.IsTerminal() && !ts.Retrying && !r.printed[ts.ID] {
				r.printed[ts.ID] = true
				fmt.Fprintln(r.w, r.line(ts, r.nameWidth(states)))
			}
		}
		return
	}

	var b strings.Builder
	if r.drawn > 0 {
		fmt.Fprintf(&b, "\x1b[%dA", r.drawn)
	}

	nameWidth := r.nameWidth(states)
	for _, ts := range states {
		b.WriteString("\x1b[2K")
		b.WriteString(r.line(ts, nameWidth))
		b.WriteByte('\n')
	}
	r.drawn = len(states)

	_, _ = io.WriteString(r.w, b.String())
}

// nameWidth sizes the name column to the widest name that still leaves
// room for the rest of the line.
func (r *Renderer) nameWidth(states []progress.TaskState) int {
	widest := minNameWidth
	for _, ts := range states {
		widest = max(widest, runewidth.StringWidth(displayName(ts)))
	}

	// glyph, bar, percent and sizes take about 45 columns.
	return max(minNameWidth, min(widest, r.width-45))
}

func (r *Renderer) line(ts progress.TaskState, nameWidth int) string {
	name := runewidth.FillRight(runewidth.Truncate(displayName(ts), nameWidth, "…"), nameWidth)

	switch {
	case ts.Retrying:
		return fmt.Sprintf("%s %s %s", r.warn.Sprint("↻"), name,
			r.warn.Sprintf("retry %d: %s", ts.Attempt, ts.ErrKind))
	case ts.Status == engine.Completed:
		return fmt.Sprintf("%s %s %s", r.ok.Sprint("✓"), name, r.faint.Sprint(Bytes(ts.Bytes)))
	case ts.Status == engine.Skipped:
		return fmt.Sprintf("%s %s %s", r.ok.Sprint("="), name, r.faint.Sprint("already present"))
	case ts.Status == engine.Failed:
		return fmt.Sprintf("%s %s %s", r.bad.Sprint("✗"), name, r.bad.Sprint(ts.Err))
	case ts.Status == engine.Downloading || ts.Status == engine.Verifying:
		return fmt.Sprintf("%s %s %s %s", r.bold.Sprint("↓"), name, bar(ts.Percent()), sizes(ts))
	default:
		return fmt.Sprintf("%s %s %s", r.faint.Sprint("·"), name, r.faint.Sprint(ts.Status))
	}
}

func displayName(ts progress.TaskState) string {
	if ts.Name != "" {
		return ts.Name
	}
	return ts.Source
}

func bar(pct float64) string {
	if pct < 0 {
		return "[" + strings.Repeat("?", barWidth) + "]     "
	}

	filled := int(pct / 100 * barWidth)
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), pct)
}

func sizes(ts progress.TaskState) string {
	if ts.Total < 0 {
		return Bytes(ts.Bytes)
	}
	return Bytes(ts.Bytes) + "/" + Bytes(ts.Total)
}

// Bytes formats n with a binary unit.
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Summary prints the totals of a finished run followed by one line per
// failed task.
func (r *Renderer) Summary(sum engine.Summary, duplicates []string, elapsed time.Duration) {
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "%s %d total, %s, %s, %s, %s in %s\n",
		r.bold.Sprint("Done:"),
		sum.Total,
		r.ok.Sprintf("%d completed", sum.Completed),
		r.ok.Sprintf("%d skipped", sum.Skipped),
		r.failColor(sum.Failed).Sprintf("%d failed", sum.Failed),
		Bytes(sum.Bytes),
		elapsed.Round(time.Millisecond),
	)

	if len(duplicates) > 0 {
		fmt.Fprintf(r.w, "%s %d duplicate input(s) ignored\n", r.warn.Sprint("!"), len(duplicates))
	}

	for _, f := range sum.Failures {
		fmt.Fprintf(r.w, "  %s %s %s\n", r.bad.Sprintf("[%s]", f.Kind), f.Source, r.faint.Sprint(f.Err))
	}

	if sum.HasKind(engine.AuthError) {
		fmt.Fprintln(r.w, r.warn.Sprint("The access token was rejected; obtain a new one and try again."))
	}
}

func (r *Renderer) failColor(failed int) *color.Color {
	if failed > 0 {
		return r.bad
	}
	return r.ok
}
