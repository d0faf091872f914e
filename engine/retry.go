package engine

import (
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
)

// Policy bounds how often and how patiently a task is re-downloaded
// after a retryable failure.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter spreads each delay over 75%-125% of its nominal value.
	Jitter bool
}

// DefaultPolicy allows three fetches, waiting 500ms then 1s in between.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p Policy) validate() error {
	switch {
	case p.MaxAttempts < 1:
		return errors.New("max attempts must be at least 1")
	case p.BaseDelay < 0:
		return errors.New("base delay must not be negative")
	case p.MaxDelay < p.BaseDelay:
		return errors.New("max delay must not be below base delay")
	}
	return nil
}

// Delay returns the wait before the fetch following failed attempt n
// (n >= 1): BaseDelay doubled n-1 times, capped at MaxDelay.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay
	for range n - 1 {
		if d >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}

	return min(d, p.MaxDelay)
}

// spread applies jitter to d given a uniform sample f in [0, 1).
func (p Policy) spread(d time.Duration, f float64) time.Duration {
	if !p.Jitter {
		return d
	}

	return min(time.Duration(float64(d)*(0.75+0.5*f)), p.MaxDelay)
}

// wait picks the backoff after failed attempt n. A server-requested
// Retry-After longer than the computed delay wins, up to MaxDelay.
func (p Policy) wait(n int, retryAfter time.Duration, f float64) time.Duration {
	d := p.spread(p.Delay(n), f)
	if retryAfter > d {
		d = min(retryAfter, p.MaxDelay)
	}
	return d
}
