package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taiga-forestry/multithreaded-search/internal/analytics"
	"github.com/taiga-forestry/multithreaded-search/internal/corpus"
	"github.com/taiga-forestry/multithreaded-search/internal/indexer"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/cache"
	"github.com/taiga-forestry/multithreaded-search/internal/textproc"
	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	"github.com/taiga-forestry/multithreaded-search/pkg/metrics"
)

// app wires the corpus, builder and search service for every command.
type app struct {
	cfg       *config.Config
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	processor *textproc.Processor
	service   *searcher.Service
	closers   []func() error
	logger    *slog.Logger
}

// bootstrap prepares an app. queryCache and collector may be nil. When
// metrics are enabled a scrape endpoint is started on cfg.Metrics.Port.
func bootstrap(ctx context.Context, cfg *config.Config, queryCache *cache.QueryCache, collector *analytics.Collector) (*app, error) {
	processor, err := textproc.New(cfg.Text.StopWordsPath)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := &app{
		cfg:       cfg,
		registry:  reg,
		metrics:   m,
		processor: processor,
		service:   searcher.New(cfg.Search, queryCache, collector, m),
		logger:    slog.Default().With("component", "bootstrap"),
	}
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		a.closers = append(a.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(shutdownCtx)
		})
	}
	return a, nil
}

// build loads the corpus, builds the index and installs it in the service.
func (a *app) build(ctx context.Context) error {
	start := time.Now()
	src, closeSource, err := corpus.Open(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(); err != nil {
			a.logger.Warn("closing corpus source", "error", err)
		}
	}()

	res, err := corpus.Load(ctx, src, a.cfg.Corpus)
	if err != nil {
		return err
	}
	a.metrics.RecordsSkippedTotal.Add(float64(res.Skipped))

	b, err := indexer.NewBuilder(a.cfg.Index, a.processor, a.metrics)
	if err != nil {
		return fmt.Errorf("configuring index builder: %w", err)
	}
	b.SetTracing(a.cfg.Tracing.Enabled)
	ix, err := b.Build(ctx, res.Pages)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	a.service.SetIndex(ix, a.processor)

	st := ix.Stats()
	a.logger.Info("index ready",
		"source", src.Name(),
		"documents", st.Documents,
		"skipped", res.Skipped,
		"terms", st.Terms,
		"pagerank_iterations", st.PageRankIterations,
		"elapsed", time.Since(start),
	)
	return nil
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", "error", err)
	}
}
