// Package bookfetch downloads textbooks by content id or URL. It wires
// the HTTP client, the resolvers and the download engine together with
// the defaults the command line uses.
//
// Basic usage:
//
//	f, err := bookfetch.New(bookfetch.WithToken(token))
//	if err != nil {
//		return err
//	}
//	sum, err := f.Fetch(ctx, []string{id}, 5)
package bookfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adamwoolhether/bookfetch/client"
	"github.com/adamwoolhether/bookfetch/credential"
	"github.com/adamwoolhether/bookfetch/engine"
	"github.com/adamwoolhether/bookfetch/resolve"
)

// Ext is the extension every saved book gets.
const Ext = ".pdf"

// UserAgent is sent with every request unless overridden.
const UserAgent = "bookfetch/1.0"

// Fetcher downloads sessions of books.
type Fetcher struct {
	engine *engine.Engine
	client *client.Client
	logger *slog.Logger
}

// New builds a Fetcher. Without WithCredentials or WithToken the token is
// read from [credential.DefaultFile]. Sources are resolved through the
// manifest, then the template, then as direct file URLs.
func New(optFns ...Option) (*Fetcher, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.creds == nil {
		opts.creds = credential.NewFile(credential.DefaultFile)
	}
	if opts.userAgent == "" {
		opts.userAgent = UserAgent
	}

	clientOpts := []client.Option{
		client.WithLogger(opts.logger),
		client.WithUserAgent(opts.userAgent),
		client.WithBearer(opts.creds.Token),
	}
	if opts.rps > 0 {
		clientOpts = append(clientOpts, client.WithThrottle(opts.rps, opts.burst))
	}

	c, err := client.Build(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}

	resolver, err := buildResolver(c, opts)
	if err != nil {
		return nil, err
	}

	engineOpts := append([]engine.Option{
		engine.WithLogger(opts.logger),
		engine.WithFetcher(c),
	}, opts.engineOpts...)

	e, err := engine.New(resolver, opts.creds, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	return &Fetcher{engine: e, client: c, logger: opts.logger}, nil
}

func buildResolver(c *client.Client, opts options) (resolve.Chain, error) {
	direct, err := resolve.NewDirect(c, resolve.WithExt(Ext))
	if err != nil {
		return nil, fmt.Errorf("building direct resolver: %w", err)
	}

	var chain resolve.Chain
	if opts.manifest != nil {
		chain = append(chain, opts.manifest)
	}
	if opts.template != "" {
		tmpl, err := resolve.NewTemplate(opts.template, direct)
		if err != nil {
			return nil, fmt.Errorf("building template resolver: %w", err)
		}
		chain = append(chain, tmpl)
	}

	return append(chain, direct), nil
}

// NewSession builds a session over sources. Sources are identified with
// [resolve.Identify], so a content id and a page URL carrying it collapse
// into one task.
func NewSession(sources []string, concurrency int) (*engine.Session, error) {
	return engine.NewSession(sources, resolve.Identify, concurrency)
}

// Run executes s. See [engine.Engine.Run].
func (f *Fetcher) Run(ctx context.Context, s *engine.Session) (engine.Summary, error) {
	return f.engine.Run(ctx, s)
}

// Fetch downloads sources with at most concurrency books in flight.
// A run where some books failed returns the summary and a nil error;
// check [engine.Summary.OK].
func (f *Fetcher) Fetch(ctx context.Context, sources []string, concurrency int) (engine.Summary, error) {
	s, err := NewSession(sources, concurrency)
	if err != nil {
		return engine.Summary{}, err
	}

	f.logger.Debug("session built", "session", s.ID, "tasks", len(s.Tasks), "duplicates", len(s.Duplicates))

	return f.Run(ctx, s)
}

// ErrAuth reports a summary with at least one rejected credential.
var ErrAuth = errors.New("access token rejected")

// Err condenses a summary into an error: nil when every book is present,
// ErrAuth when the token was rejected, a count of failures otherwise.
func Err(sum engine.Summary) error {
	switch {
	case sum.OK():
		return nil
	case sum.HasKind(engine.AuthError):
		return fmt.Errorf("%w: %d of %d books failed", ErrAuth, sum.Failed, sum.Total)
	default:
		return fmt.Errorf("%d of %d books failed", sum.Failed, sum.Total)
	}
}
