package bookfetch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/adamwoolhether/bookfetch/credential"
	"github.com/adamwoolhether/bookfetch/engine"
	"github.com/adamwoolhether/bookfetch/resolve"
)

// Option defines optional settings for a Fetcher.
//
// WithToken and WithCredentials set where the bearer token comes from.
//
// WithManifest and WithTemplate add resolvers tried before direct URLs.
//
// WithEngine passes options through to the download engine, for the
// output directory, retry policy, reporter or observer.
type Option func(*options) error

type options struct {
	logger     *slog.Logger
	creds      credential.Provider
	userAgent  string
	rps, burst int
	manifest   *resolve.Manifest
	template   string
	engineOpts []engine.Option
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

func WithToken(token string) Option {
	return WithCredentials(credential.Static(token))
}

func WithCredentials(p credential.Provider) Option {
	return func(o *options) error {
		if p == nil {
			return errors.New("credentials must not be nil")
		}
		o.creds = p
		return nil
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.userAgent = ua
		return nil
	}
}

// WithThrottle limits requests per host. A burst of 0 means rps.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst < 0 {
			return fmt.Errorf("invalid throttle rps[%d] burst[%d]", rps, burst)
		}
		if burst == 0 {
			burst = rps
		}
		o.rps, o.burst = rps, burst
		return nil
	}
}

func WithManifest(m *resolve.Manifest) Option {
	return func(o *options) error {
		o.manifest = m
		return nil
	}
}

func WithTemplate(tmpl string) Option {
	return func(o *options) error {
		o.template = tmpl
		return nil
	}
}

func WithEngine(opts ...engine.Option) Option {
	return func(o *options) error {
		o.engineOpts = append(o.engineOpts, opts...)
		return nil
	}
}
