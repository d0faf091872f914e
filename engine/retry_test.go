package engine

import (
	"testing"
	"time"
)

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()

	testCases := []struct {
		n    int
		want time.Duration
	}{
		{n: 0, want: 0},
		{n: 1, want: 500 * time.Millisecond},
		{n: 2, want: time.Second},
		{n: 3, want: 2 * time.Second},
		{n: 6, want: 16 * time.Second},
		{n: 7, want: 30 * time.Second},
		{n: 100, want: 30 * time.Second},
	}

	for _, tc := range testCases {
		if got := p.Delay(tc.n); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}

	if got := (Policy{MaxAttempts: 3}).Delay(2); got != 0 {
		t.Errorf("zero base delay should not wait, got %v", got)
	}
}

func TestPolicy_Spread(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: true}

	testCases := []struct {
		f    float64
		want time.Duration
	}{
		{f: 0, want: 750 * time.Millisecond},
		{f: 0.5, want: time.Second},
		{f: 0.25, want: 875 * time.Millisecond},
	}

	for _, tc := range testCases {
		if got := p.spread(time.Second, tc.f); got != tc.want {
			t.Errorf("spread(1s, %v) = %v, want %v", tc.f, got, tc.want)
		}
	}

	if got := p.spread(10*time.Second, 0.9); got != 10*time.Second {
		t.Errorf("spread must not exceed max delay, got %v", got)
	}

	p.Jitter = false
	if got := p.spread(time.Second, 0); got != time.Second {
		t.Errorf("spread without jitter = %v, want 1s", got)
	}
}

func TestPolicy_Wait(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	testCases := map[string]struct {
		n          int
		retryAfter time.Duration
		want       time.Duration
	}{
		"no retry after":       {n: 1, want: time.Second},
		"shorter retry after":  {n: 2, retryAfter: 500 * time.Millisecond, want: 2 * time.Second},
		"longer retry after":   {n: 1, retryAfter: 5 * time.Second, want: 5 * time.Second},
		"retry after over cap": {n: 1, retryAfter: time.Minute, want: 10 * time.Second},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := p.wait(tc.n, tc.retryAfter, 0.5); got != tc.want {
				t.Errorf("wait() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	testCases := map[string]struct {
		policy Policy
		expErr bool
	}{
		"default":        {policy: DefaultPolicy()},
		"single attempt": {policy: Policy{MaxAttempts: 1}},
		"zero attempts":  {policy: Policy{}, expErr: true},
		"negative base":  {policy: Policy{MaxAttempts: 1, BaseDelay: -1}, expErr: true},
		"max below base": {policy: Policy{MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: time.Millisecond}, expErr: true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := tc.policy.validate()
			if (err != nil) != tc.expErr {
				t.Errorf("validate() error = %v, expErr %v", err, tc.expErr)
			}
		})
	}
}
