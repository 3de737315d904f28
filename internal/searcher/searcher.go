// Package searcher serves queries against the built index for every
// surface (interactive loop, one-shot command, HTTP and MCP). It clamps
// limits, consults the query cache, records metrics and emits analytics
// events.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/taiga-forestry/multithreaded-search/internal/analytics"
	"github.com/taiga-forestry/multithreaded-search/internal/indexer"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/cache"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/query"
	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	apperrors "github.com/taiga-forestry/multithreaded-search/pkg/errors"
	"github.com/taiga-forestry/multithreaded-search/pkg/logger"
	"github.com/taiga-forestry/multithreaded-search/pkg/metrics"
)

// Request is one query from any surface.
type Request struct {
	Query       string
	Limit       int
	UsePageRank bool
	Surface     string
}

// DocumentInfo describes a single indexed document.
type DocumentInfo struct {
	Title    string   `json:"title"`
	ID       int64    `json:"id"`
	Rank     float64  `json:"rank"`
	Terms    int      `json:"distinct_terms"`
	MaxCount int      `json:"max_term_count"`
	Links    []string `json:"links"`
}

type snapshot struct {
	index  *indexer.Index
	engine *query.Engine
}

// Service answers queries once an index has been installed with SetIndex.
// Until then every call fails with ErrIndexNotReady.
type Service struct {
	state     atomic.Pointer[snapshot]
	cfg       config.SearchConfig
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New returns a Service. queryCache, collector and m may be nil.
func New(cfg config.SearchConfig, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics) *Service {
	return &Service{
		cfg:       cfg,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "searcher"),
	}
}

// SetIndex installs a built index and the analyzer used for queries.
func (s *Service) SetIndex(ix *indexer.Index, analyzer query.Analyzer) {
	s.state.Store(&snapshot{index: ix, engine: query.NewEngine(ix, analyzer)})
	s.logger.Info("index installed", "documents", ix.NumDocuments())
}

// Ready reports whether an index is installed.
func (s *Service) Ready() bool {
	return s.state.Load() != nil
}

// Cache returns the query cache, or nil when caching is disabled.
func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

func (s *Service) current() (*snapshot, error) {
	snap := s.state.Load()
	if snap == nil {
		return nil, apperrors.New(apperrors.ErrIndexNotReady, http.StatusServiceUnavailable, "index build in progress")
	}
	return snap, nil
}

// Limit resolves a requested limit: non-positive selects the default, and
// anything above the maximum is clamped.
func (s *Service) Limit(requested int) int {
	if requested <= 0 {
		requested = s.cfg.DefaultLimit
	}
	if s.cfg.MaxResults > 0 && requested > s.cfg.MaxResults {
		requested = s.cfg.MaxResults
	}
	return requested
}

// Search answers req.
func (s *Service) Search(ctx context.Context, req Request) (*query.Response, error) {
	start := time.Now()
	snap, err := s.current()
	if err != nil {
		s.observe("error", req.Surface, start, 0)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled: %w", err)
	}

	limit := s.Limit(req.Limit)
	terms := snap.engine.TokenizeQuery(req.Query)
	compute := func() *query.Response {
		return snap.engine.Answer(req.Query, terms, limit, req.UsePageRank)
	}

	var resp *query.Response
	cacheHit := false
	if s.cache != nil && len(terms) > 0 {
		resp, cacheHit = s.cache.GetOrCompute(ctx, cache.Key{Terms: terms, Limit: limit, UsePageRank: req.UsePageRank}, compute)
		// Cached and shared responses carry the text of whichever request
		// computed them.
		own := *resp
		own.Query = strings.TrimSpace(req.Query)
		resp = &own
		if s.metrics != nil {
			if cacheHit {
				s.metrics.CacheHitsTotal.Inc()
			} else {
				s.metrics.CacheMissesTotal.Inc()
			}
		}
	} else {
		resp = compute()
	}

	resultType := "hit"
	if resp.NoResults {
		resultType = "zero_result"
	}
	s.observe(resultType, req.Surface, start, len(resp.Results))

	latency := time.Since(start)
	logger.FromContext(ctx).Info("search completed",
		"query", resp.Query,
		"surface", req.Surface,
		"terms", len(terms),
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency", latency,
	)
	if s.collector != nil {
		event := analytics.NewSearchEvent(resp.Query, terms, len(resp.Results), latency)
		event.UsePageRank = req.UsePageRank
		event.Surface = req.Surface
		event.CacheHit = cacheHit
		event.RequestID = logger.RequestID(ctx)
		s.collector.Track(event)
	}
	return resp, nil
}

func (s *Service) observe(resultType, surface string, start time.Time, returned int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	if resultType == "error" {
		return
	}
	s.metrics.SearchLatency.WithLabelValues(surface).Observe(time.Since(start).Seconds())
	s.metrics.SearchResultsCount.Observe(float64(returned))
}

// Document returns rank and term summary for title. Titles are matched
// after trimming and lower-casing, as they were at ingest.
func (s *Service) Document(title string) (*DocumentInfo, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	title = strings.ToLower(strings.TrimSpace(title))
	d, ok := snap.index.Document(title)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusNotFound, "no document titled %q", title)
	}
	return &DocumentInfo{
		Title:    d.Title,
		ID:       d.ID,
		Rank:     snap.index.Rank(title),
		Terms:    len(d.TermCounts),
		MaxCount: d.MaxTermCount,
		Links:    snap.index.Links(title),
	}, nil
}

// Stats returns the build statistics of the installed index.
func (s *Service) Stats() (indexer.Stats, error) {
	snap, err := s.current()
	if err != nil {
		return indexer.Stats{}, err
	}
	return snap.index.Stats(), nil
}
