// Command bookfetch downloads textbooks by content id or URL.
//
// Usage:
//
//	bookfetch [flags] -u URL... | -c ID... | -i FILE
//
// Every flag can also be set through a BOOKFETCH_ environment variable
// or a config file given with --config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/adamwoolhether/bookfetch"
	"github.com/adamwoolhether/bookfetch/config"
	"github.com/adamwoolhether/bookfetch/credential"
	"github.com/adamwoolhether/bookfetch/engine"
	"github.com/adamwoolhether/bookfetch/metrics"
	"github.com/adamwoolhether/bookfetch/progress"
	"github.com/adamwoolhether/bookfetch/report"
	"github.com/adamwoolhether/bookfetch/resolve"
	"github.com/adamwoolhether/bookfetch/status"
	"github.com/adamwoolhether/bookfetch/web/server"
)

const (
	exitOK        = 0
	exitFailed    = 1
	exitFatal     = 2
	exitAuth      = 3
	exitInterrupt = 130
)

const renderInterval = 100 * time.Millisecond

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, lookupEnv func(string) (string, bool), stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, lookupEnv, stderr)
	if errors.Is(err, config.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "bookfetch:", err)
		return exitFatal
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cfg.File != "" {
		log.Debug("config file loaded", "path", cfg.File)
	}

	code, err := fetch(ctx, cfg, log, stdout)
	if err != nil {
		log.Error("bookfetch", "error", err)
	}

	return code
}

func fetch(ctx context.Context, cfg config.Config, log *slog.Logger, stdout io.Writer) (int, error) {
	tokenFile := credential.NewFile(cfg.TokenFile)
	if cfg.SaveToken {
		if err := tokenFile.Save(cfg.Token); err != nil {
			return exitFatal, fmt.Errorf("saving token: %w", err)
		}
		log.Info("token saved", "path", tokenFile.Path())
	}
	creds := credential.Chain{credential.Static(cfg.Token), tokenFile}

	var manifest *resolve.Manifest
	if cfg.Manifest != "" {
		m, err := resolve.LoadManifest(cfg.Manifest, resolve.WithExt(bookfetch.Ext))
		if err != nil {
			return exitFatal, err
		}
		manifest = m
	}

	sources, err := cfg.Sources()
	if err != nil {
		return exitFatal, err
	}
	if len(sources) == 0 && manifest != nil {
		sources = manifest.IDs()
	}

	session, err := bookfetch.NewSession(sources, cfg.Concurrency)
	if err != nil {
		return exitFatal, err
	}

	dir, filename, err := cfg.Destination(cfg.Batch(len(session.Tasks)))
	if err != nil {
		return exitFatal, err
	}

	rep := progress.New()
	m := metrics.New(cfg.StatusAddr != "")

	opts := []bookfetch.Option{
		bookfetch.WithLogger(log),
		bookfetch.WithCredentials(creds),
		bookfetch.WithManifest(manifest),
		bookfetch.WithTemplate(cfg.Template),
		bookfetch.WithEngine(
			engine.WithOutputDir(dir),
			engine.WithFilename(filename),
			engine.WithPolicy(cfg.Policy()),
			engine.WithHardTimeout(cfg.HardTimeout),
			engine.WithKeepCorrupt(cfg.KeepCorrupt),
			engine.WithReporter(rep),
			engine.WithObserver(m),
			engine.WithTracer(otel.Tracer("github.com/adamwoolhether/bookfetch")),
		),
	}
	if cfg.RPS > 0 {
		opts = append(opts, bookfetch.WithThrottle(cfg.RPS, cfg.Burst))
	}

	f, err := bookfetch.New(opts...)
	if err != nil {
		return exitFatal, err
	}

	if len(session.Duplicates) > 0 {
		log.Info("duplicate inputs ignored", "count", len(session.Duplicates))
	}

	// Background work outlives an interrupt so the final state still
	// renders and the status server answers until the summary is out.
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	defer wg.Wait()
	defer stopBackground()

	if cfg.StatusAddr != "" {
		srv := server.New(status.NewApp(status.Config{
			Source:  rep,
			Metrics: m.Handler(),
			Log:     log,
			Tracer:  otel.Tracer("github.com/adamwoolhether/bookfetch/status"),
		}), server.WithHost(cfg.StatusAddr), server.WithLogger(log))

		wg.Go(func() {
			if err := srv.Run(bgCtx); err != nil {
				log.Error("status server", "error", err)
			}
		})
	}

	renderer := report.NewRenderer(stdout, cfg.NoColor)
	renderCtx, stopRender := context.WithCancel(bgCtx)
	var renderWG sync.WaitGroup
	renderWG.Go(func() {
		progress.Watch(renderCtx, rep, renderInterval, renderer.Render)
	})

	started := time.Now()
	sum, runErr := f.Run(ctx, session)
	finished := time.Now()

	stopRender()
	renderWG.Wait()

	if runErr != nil && !errors.Is(runErr, engine.ErrCancelled) {
		if errors.Is(runErr, engine.ErrNoCredential) {
			return exitFatal, fmt.Errorf("%w: pass --token or write it to %s", runErr, tokenFile.Path())
		}
		return exitFatal, runErr
	}

	renderer.Summary(sum, session.Duplicates, finished.Sub(started))

	if cfg.Report != "" {
		if err := report.WriteYAML(cfg.Report, report.NewSession(session, sum, started, finished)); err != nil {
			log.Error("writing report", "path", cfg.Report, "error", err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			log.Error("writing metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	switch {
	case runErr != nil:
		return exitInterrupt, nil
	case sum.HasKind(engine.AuthError):
		return exitAuth, nil
	case !sum.OK():
		return exitFailed, nil
	}

	return exitOK, nil
}
