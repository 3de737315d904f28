package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taiga-forestry/multithreaded-search/internal/corpus"
	"github.com/taiga-forestry/multithreaded-search/internal/indexer/extract"
	"github.com/taiga-forestry/multithreaded-search/internal/indexer/shard"
	"github.com/taiga-forestry/multithreaded-search/internal/rank"
	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	"github.com/taiga-forestry/multithreaded-search/pkg/metrics"
	"github.com/taiga-forestry/multithreaded-search/pkg/tracing"
)

// docShard is owned by one worker per phase. mu guards docs and links while
// the tokenize phase writes them.
type docShard struct {
	mu    sync.Mutex
	pages []corpus.RawPage
	docs  map[string]*Document
	links map[string][]string
}

// termShard holds document frequencies. Every document worker may increment
// them, so mu is held for each increment.
type termShard struct {
	mu sync.Mutex
	df map[string]int
}

// Builder runs the index build. A Builder may be reused; each Build call
// works on fresh state.
type Builder struct {
	cfg       config.IndexConfig
	extractor *extract.Extractor
	metrics   *metrics.Metrics
	tracing   bool
	logger    *slog.Logger
}

// NewBuilder validates cfg and returns a Builder that tokenizes with a.
// m may be nil.
func NewBuilder(cfg config.IndexConfig, a extract.Analyzer, m *metrics.Metrics) (*Builder, error) {
	if _, err := shard.NewPartitioner(cfg.DocShards, cfg.TermShards); err != nil {
		return nil, err
	}
	if cfg.Epsilon <= 0 || cfg.Epsilon >= 1 {
		return nil, fmt.Errorf("epsilon must be within (0, 1), got %g", cfg.Epsilon)
	}
	return &Builder{
		cfg:       cfg,
		extractor: extract.New(a),
		metrics:   m,
		logger:    slog.Default().With("component", "indexer"),
	}, nil
}

// SetTracing makes Build log its span tree when it finishes.
func (b *Builder) SetTracing(on bool) { b.tracing = on }

type build struct {
	b       *Builder
	part    *shard.Partitioner
	docs    []*docShard
	terms   []*termShard
	tables  []termTable
	titles  []string
	pos     map[string]int
	weights [][]float64
	stats   Stats
}

// Build indexes pages and solves PageRank. Cancelling ctx stops the build
// between documents and returns the context error.
func (b *Builder) Build(ctx context.Context, pages []corpus.RawPage) (*Index, error) {
	start := time.Now()
	ctx, root := tracing.StartSpan(ctx, "index.build")
	defer root.End()

	st := b.newBuild()
	b.logger.Info("index build starting",
		"pages", len(pages),
		"doc_shards", st.part.DocShards(),
		"term_shards", st.part.TermShards(),
	)

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"partition", func(ctx context.Context) error { st.partition(pages); return nil }},
		{"tokenize", st.tokenize},
		{"relevance", st.relevance},
		{"weights", st.buildWeights},
	}
	for _, ph := range phases {
		if err := b.phase(ctx, ph.name, ph.run); err != nil {
			return nil, fmt.Errorf("%s phase: %w", ph.name, err)
		}
	}

	var solved *rank.Result
	err := b.phase(ctx, "pagerank", func(ctx context.Context) error {
		var err error
		solved, err = rank.Solve(ctx, st.weights, rank.Config{Delta: b.cfg.Delta, MaxIterations: b.cfg.MaxIterations})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pagerank phase: %w", err)
	}

	st.stats.PageRankIterations = solved.Iterations
	st.stats.PageRankResidual = solved.Residual
	st.stats.PageRankConverged = solved.Converged
	st.stats.Elapsed = time.Since(start)
	root.SetAttr("documents", st.stats.Documents)
	root.SetAttr("terms", st.stats.Terms)

	ix := st.freeze(solved.Ranks)
	b.record(ix)
	if b.tracing {
		root.End()
		root.Log(b.logger)
	}
	b.logger.Info("index build complete",
		"documents", st.stats.Documents,
		"terms", st.stats.Terms,
		"valid_edges", st.stats.ValidEdges,
		"dangling", st.stats.DanglingDocuments,
		"pagerank_iterations", st.stats.PageRankIterations,
		"elapsed", st.stats.Elapsed,
	)
	return ix, nil
}

func (b *Builder) newBuild() *build {
	part, _ := shard.NewPartitioner(b.cfg.DocShards, b.cfg.TermShards)
	st := &build{
		b:     b,
		part:  part,
		docs:  make([]*docShard, part.DocShards()),
		terms: make([]*termShard, part.TermShards()),
	}
	for i := range st.docs {
		st.docs[i] = &docShard{docs: make(map[string]*Document), links: make(map[string][]string)}
	}
	for i := range st.terms {
		st.terms[i] = &termShard{df: make(map[string]int)}
	}
	return st
}

// phase runs fn as one traced, timed barrier step.
func (b *Builder) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "phase."+name)
	start := time.Now()
	err := fn(ctx)
	span.End()
	elapsed := time.Since(start)
	if b.metrics != nil {
		b.metrics.PhaseDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	if err != nil {
		span.SetAttr("error", err.Error())
		return err
	}
	b.logger.Debug("phase complete", "phase", name, "duration", elapsed)
	return nil
}

func (b *Builder) record(ix *Index) {
	if b.metrics == nil {
		return
	}
	b.metrics.DocsIndexedTotal.Add(float64(ix.stats.Documents))
	b.metrics.IndexedTerms.Set(float64(ix.stats.Terms))
	b.metrics.PageRankIterations.Set(float64(ix.stats.PageRankIterations))
	b.metrics.PageRankResidual.Set(ix.stats.PageRankResidual)
}

// partition routes each page to its document shard, preserving input order
// within a shard. A repeated title keeps its first page.
func (st *build) partition(pages []corpus.RawPage) {
	seen := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		if _, dup := seen[p.Title]; dup {
			st.stats.DuplicateTitles++
			st.b.logger.Warn("duplicate title, keeping first page", "title", p.Title, "id", p.ID)
			continue
		}
		seen[p.Title] = struct{}{}
		s := st.docs[st.part.DocShard(p.ID)]
		s.pages = append(s.pages, p)
	}
	st.titles = make([]string, 0, len(seen))
	for t := range seen {
		st.titles = append(st.titles, t)
	}
	sort.Strings(st.titles)
	st.pos = make(map[string]int, len(st.titles))
	for i, t := range st.titles {
		st.pos[t] = i
	}
	st.stats.Documents = len(st.titles)
	if m := st.b.metrics; m != nil {
		for i, s := range st.docs {
			m.ShardDocCount.WithLabelValues(strconv.Itoa(i)).Set(float64(len(s.pages)))
		}
	}
}

// tokenize extracts every page of a shard and records its Document, links
// and first-occurrence document frequencies.
func (st *build) tokenize(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range st.docs {
		g.Go(func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, p := range s.pages {
				if err := ctx.Err(); err != nil {
					return err
				}
				sum := extract.Fold(st.b.extractor.Extract(p.Title, p.Text))
				for term := range sum.TermCounts {
					ts := st.terms[st.part.TermShard(term)]
					ts.mu.Lock()
					ts.df[term]++
					ts.mu.Unlock()
				}
				s.docs[p.Title] = &Document{
					Title:        p.Title,
					ID:           p.ID,
					TermCounts:   sum.TermCounts,
					MaxTermCount: sum.MaxTermCount,
				}
				s.links[p.Title] = sum.Targets
			}
			return nil
		})
	}
	return g.Wait()
}

// relevance computes tf * idf for every (term, document) pair, one worker per
// term shard. Documents are read-only here.
func (st *build) relevance(ctx context.Context) error {
	n := float64(len(st.titles))
	st.tables = make([]termTable, len(st.terms))
	g, ctx := errgroup.WithContext(ctx)
	for i, ts := range st.terms {
		g.Go(func() error {
			table := termTable{df: ts.df, relevance: make(map[string]map[string]float64, len(ts.df))}
			idf := make(map[string]float64, len(ts.df))
			for term, df := range ts.df {
				idf[term] = math.Log(n / float64(df))
				table.relevance[term] = make(map[string]float64, df)
			}
			for _, ds := range st.docs {
				if err := ctx.Err(); err != nil {
					return err
				}
				for title, doc := range ds.docs {
					for term, count := range doc.TermCounts {
						if st.part.TermShard(term) != i {
							continue
						}
						tf := float64(count) / float64(doc.MaxTermCount)
						table.relevance[term][title] = tf * idf[term]
					}
				}
			}
			st.tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, t := range st.tables {
		st.stats.Terms += len(t.df)
	}
	return nil
}

// buildWeights fills one dense row per document. A source with no valid
// outgoing edge is dangling and spreads its link mass over every other
// document. Rows are written at disjoint positions, one worker per shard.
func (st *build) buildWeights(ctx context.Context) error {
	n := len(st.titles)
	eps := st.b.cfg.Epsilon
	st.weights = make([][]float64, n)

	type shardCounts struct{ edges, valid, dangling int }
	counts := make([]shardCounts, len(st.docs))

	g, ctx := errgroup.WithContext(ctx)
	for si, ds := range st.docs {
		g.Go(func() error {
			for title, targets := range ds.links {
				if err := ctx.Err(); err != nil {
					return err
				}
				src := st.pos[title]
				valid := make(map[int]struct{}, len(targets))
				for _, target := range targets {
					if dst, ok := st.pos[target]; ok && dst != src {
						valid[dst] = struct{}{}
					}
				}
				counts[si].edges += len(targets)
				counts[si].valid += len(valid)

				row := make([]float64, n)
				if n == 1 {
					row[0] = 1
					st.weights[src] = row
					continue
				}
				nk := len(valid)
				dangling := nk == 0
				if dangling {
					nk = n - 1
					counts[si].dangling++
				}
				base := eps / float64(n)
				linked := base + (1-eps)/float64(nk)
				for dst := range row {
					_, edge := valid[dst]
					if dst != src && (dangling || edge) {
						row[dst] = linked
					} else {
						row[dst] = base
					}
				}
				st.weights[src] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, c := range counts {
		st.stats.Edges += c.edges
		st.stats.ValidEdges += c.valid
		st.stats.DanglingDocuments += c.dangling
	}
	return nil
}

func (st *build) freeze(ranks []float64) *Index {
	ix := &Index{
		part:     st.part,
		titles:   st.titles,
		position: st.pos,
		docs:     make(map[string]*Document, len(st.titles)),
		terms:    st.tables,
		links:    make(map[string][]string, len(st.titles)),
		weights:  st.weights,
		ranks:    ranks,
		stats:    st.stats,
	}
	for _, ds := range st.docs {
		for title, d := range ds.docs {
			ix.docs[title] = d
		}
		for title, l := range ds.links {
			ix.links[title] = l
		}
	}
	return ix
}
