// Package runner wires the collector and exporter into one export run.
package runner

import (
	"context"
	"time"

	"bmexport/pkg/collector"
	"bmexport/pkg/config"
	"bmexport/pkg/exporter"
	"bmexport/pkg/extractor"
	"bmexport/pkg/logger"
	"bmexport/pkg/page"
	"bmexport/pkg/ratelimit"
	"bmexport/pkg/storage"
)

// Result summarizes a finished run
type Result struct {
	Posts     int
	Files     []string
	OutputDir string
	Collected collector.Stats
	Images    exporter.Stats
	Elapsed   time.Duration
}

// Option configures a run
type Option func(*options)

type options struct {
	session  bool
	clock    func() time.Time
	observer Observer
}

// Run phases reported to an Observer
const (
	PhaseLogin   = "login"
	PhaseCollect = "collect"
	PhaseExport  = "export"
)

// Observer follows a run as it happens. Calls arrive from the goroutine
// driving the run.
type Observer interface {
	Phase(name string)
	Progress(p collector.Progress)
	FileWritten(name string, posts int)
}

// WithSession performs the manual login and opens the bookmarks timeline
// before collecting
func WithSession() Option {
	return func(o *options) {
		o.session = true
	}
}

// WithClock sets the clock used for the export timestamp
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithObserver reports phases, scroll progress and written files to obs
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// Run collects every post from p and writes the markdown export. The page is
// closed before Run returns, whether or not the run succeeded.
func Run(ctx context.Context, p page.Page, cfg *config.Config, log logger.Logger, opts ...Option) (result *Result, err error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	start := time.Now()

	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close browser")
		}
		if err != nil {
			log.WithError(err).Error("Error during export")
		}
	}()

	store, err := storage.NewManager(cfg.OutputDir, cfg.IncludeImages && cfg.DownloadImagesLocally)
	if err != nil {
		return nil, err
	}

	expOpts := []exporter.Option{exporter.WithClock(o.clock)}
	if o.observer != nil {
		expOpts = append(expOpts, exporter.OnFileWritten(o.observer.FileWritten))
	}
	exp := exporter.New(cfg, store, p, ratelimit.NewTokenBucket(cfg.ImageFetchesPerMinute), log, expOpts...)

	phase := func(name string) {
		if o.observer != nil {
			o.observer.Phase(name)
		}
	}

	if o.session {
		phase(PhaseLogin)
		session := collector.NewSession(p, cfg, log)
		if err := session.Login(ctx); err != nil {
			return nil, err
		}
		if err := session.OpenBookmarks(ctx); err != nil {
			return nil, err
		}
	}

	ext := extractor.New(log, extractor.Options{
		BaseURL:       cfg.BaseURL,
		MaxQuoteDepth: cfg.MaxQuoteDepth,
	})
	col := collector.New(p, ext, exp, cfg, log)
	if o.observer != nil {
		col.OnProgress(o.observer.Progress)
	}

	phase(PhaseCollect)
	posts, err := col.Run(ctx)
	if err != nil {
		return nil, err
	}

	phase(PhaseExport)
	files, err := exp.Export(ctx, posts)
	if err != nil {
		return nil, err
	}

	result = &Result{
		Posts:     len(posts),
		Files:     files,
		OutputDir: store.GetOutputDir(),
		Collected: col.Stats(),
		Images:    exp.Stats(),
		Elapsed:   time.Since(start),
	}
	log.InfoWithFields("Successfully exported bookmarks", map[string]interface{}{
		"posts":      result.Posts,
		"files":      len(files),
		"output_dir": result.OutputDir,
	})
	return result, nil
}
