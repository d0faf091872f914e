package download

import (
	"io"
	"time"
)

// progressWriter is an io.Writer counting streamed bytes and reporting
// them through fn at most once per interval.
type progressWriter struct {
	w           io.Writer
	fn          ProgressFunc
	interval    time.Duration
	transferred int64
	total       int64
	lastReport  time.Time
	now         func() time.Time
}

func newProgressWriter(w io.Writer, fn ProgressFunc, total int64, interval time.Duration) *progressWriter {
	if interval == 0 {
		interval = DefaultProgressInterval
	}

	return &progressWriter{
		w:        w,
		fn:       fn,
		interval: interval,
		total:    total,
		now:      time.Now,
	}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if pw.fn == nil {
		return n, err
	}

	now := pw.now()
	if now.Sub(pw.lastReport) >= pw.interval {
		pw.lastReport = now
		pw.fn(pw.transferred, pw.total)
	}

	return n, err
}

// flush reports the final count regardless of the interval.
func (pw *progressWriter) flush() {
	if pw.fn != nil {
		pw.fn(pw.transferred, pw.total)
	}
}
