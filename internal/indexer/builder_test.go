package indexer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/taiga-forestry/multithreaded-search/internal/corpus"
	"github.com/taiga-forestry/multithreaded-search/internal/textproc"
	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	"github.com/taiga-forestry/multithreaded-search/pkg/metrics"
)

const tolerance = 1e-6

func testConfig() config.IndexConfig {
	return config.Default().Index
}

func newBuilder(t testing.TB, cfg config.IndexConfig) *Builder {
	t.Helper()
	b, err := NewBuilder(cfg, textproc.Default(), nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func buildIndex(t testing.TB, cfg config.IndexConfig, pages []corpus.RawPage) *Index {
	t.Helper()
	ix, err := newBuilder(t, cfg).Build(context.Background(), pages)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func threePages() []corpus.RawPage {
	return []corpus.RawPage{
		{ID: 1, Title: "a", Text: "heart [[b]]"},
		{ID: 2, Title: "b", Text: "blood [[c]] blood"},
		{ID: 3, Title: "c", Text: "lungs breathe"},
	}
}

func medicalPages() []corpus.RawPage {
	return []corpus.RawPage{
		{ID: 10, Title: "heart", Text: "the heart pumps [[blood]] through [[artery|arteries]]. [[category:organs]]"},
		{ID: 11, Title: "blood", Text: "blood carries oxygen from the [[lung|lungs]] to the [[heart]]"},
		{ID: 12, Title: "lung", Text: "the lungs exchange oxygen. [[category:organs]] [[blood]]"},
		{ID: 13, Title: "artery", Text: "an artery carries blood away from the heart"},
		{ID: 23, Title: "vein", Text: "a vein returns blood to the [[heart]] and [[missing page]]"},
		{ID: 7, Title: "oxygen", Text: "oxygen is a gas [[oxygen]]"},
	}
}

func TestThreeDocumentScenario(t *testing.T) {
	ix := buildIndex(t, testConfig(), threePages())

	if ix.NumDocuments() != 3 {
		t.Fatalf("documents = %d, want 3", ix.NumDocuments())
	}
	dangling := 0.15/3 + 0.85/2
	for _, dst := range []string{"a", "b"} {
		if w := ix.Weight("c", dst); math.Abs(w-dangling) > tolerance {
			t.Errorf("weight(c, %s) = %v, want %v", dst, w, dangling)
		}
	}
	if w := ix.Weight("c", "c"); math.Abs(w-0.05) > tolerance {
		t.Errorf("weight(c, c) = %v, want 0.05", w)
	}
	if w := ix.Weight("a", "b"); math.Abs(w-(0.05+0.85)) > tolerance {
		t.Errorf("weight(a, b) = %v, want 0.9", w)
	}

	var total float64
	for _, r := range ix.Ranks() {
		total += r
	}
	if math.Abs(total-1) > 1e-3 {
		t.Errorf("ranks sum to %v, want 1", total)
	}
	st := ix.Stats()
	if !st.PageRankConverged || st.DanglingDocuments != 1 || st.ValidEdges != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestMaxTermCountInvariant(t *testing.T) {
	ix := buildIndex(t, testConfig(), medicalPages())
	for _, title := range ix.Titles() {
		d, ok := ix.Document(title)
		if !ok {
			t.Fatalf("document %q missing", title)
		}
		maxCount := 0
		for _, c := range d.TermCounts {
			if c > maxCount {
				maxCount = c
			}
		}
		if d.MaxTermCount != maxCount {
			t.Errorf("%s: MaxTermCount = %d, want %d", title, d.MaxTermCount, maxCount)
		}
	}
}

func TestDocumentFrequencyInvariant(t *testing.T) {
	ix := buildIndex(t, testConfig(), medicalPages())
	for _, term := range ix.Terms() {
		containing := 0
		for _, title := range ix.Titles() {
			d, _ := ix.Document(title)
			if _, ok := d.TermCounts[term]; ok {
				containing++
			}
		}
		if df := ix.DocumentFrequency(term); df != containing {
			t.Errorf("df(%q) = %d, want %d", term, df, containing)
		}
		if n := len(ix.Postings(term)); n != containing {
			t.Errorf("relevance entries for %q = %d, want %d", term, n, containing)
		}
	}
}

func TestRelevanceIsTFIDF(t *testing.T) {
	ix := buildIndex(t, testConfig(), threePages())
	// "blood" appears twice in b (its max count) and nowhere else.
	want := 1.0 * math.Log(3.0/1.0)
	if got := ix.Relevance("blood", "b"); math.Abs(got-want) > tolerance {
		t.Errorf("relevance(blood, b) = %v, want %v", got, want)
	}
	if got := ix.Relevance("blood", "a"); got != 0 {
		t.Errorf("relevance(blood, a) = %v, want 0", got)
	}
}

func TestRowsSumToOne(t *testing.T) {
	ix := buildIndex(t, testConfig(), medicalPages())
	for _, title := range ix.Titles() {
		var sum float64
		for _, w := range ix.Row(title) {
			sum += w
		}
		if math.Abs(sum-1) > tolerance {
			t.Errorf("row %q sums to %v", title, sum)
		}
	}
}

func TestDanglingRows(t *testing.T) {
	ix := buildIndex(t, testConfig(), medicalPages())
	n := float64(ix.NumDocuments())
	want := 0.15/n + 0.85/(n-1)
	// artery has no links; oxygen only links to itself.
	for _, src := range []string{"artery", "oxygen"} {
		for _, dst := range ix.Titles() {
			if dst == src {
				continue
			}
			if w := ix.Weight(src, dst); math.Abs(w-want) > tolerance {
				t.Errorf("weight(%s, %s) = %v, want %v", src, dst, w, want)
			}
		}
	}
	// vein's link to a missing page is ignored, leaving one valid edge.
	if w := ix.Weight("vein", "heart"); math.Abs(w-(0.15/n+0.85)) > tolerance {
		t.Errorf("weight(vein, heart) = %v", w)
	}
}

func TestShardOwnership(t *testing.T) {
	b := newBuilder(t, testConfig())
	st := b.newBuild()
	st.partition(medicalPages())
	if err := st.tokenize(context.Background()); err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	order := make(map[int64]int)
	for i, p := range medicalPages() {
		order[p.ID] = i
	}
	for i, ds := range st.docs {
		for j, p := range ds.pages {
			if got := st.part.DocShard(p.ID); got != i {
				t.Errorf("page %d in doc shard %d, want %d", p.ID, i, got)
			}
			if j > 0 && order[ds.pages[j-1].ID] > order[p.ID] {
				t.Errorf("doc shard %d: page %d precedes page %d against corpus order", i, ds.pages[j-1].ID, p.ID)
			}
		}
		if len(ds.docs) != len(ds.pages) {
			t.Errorf("doc shard %d: %d documents for %d pages", i, len(ds.docs), len(ds.pages))
		}
	}
	for i, ts := range st.terms {
		for term := range ts.df {
			if got := st.part.TermShard(term); got != i {
				t.Errorf("term %q in term shard %d, want %d", term, i, got)
			}
		}
	}
}

func TestShardCountDoesNotChangeResult(t *testing.T) {
	single := testConfig()
	single.DocShards, single.TermShards = 1, 1
	paired := testConfig()
	paired.DocShards, paired.TermShards = 4, 13

	base := buildIndex(t, testConfig(), medicalPages())
	for _, cfg := range []config.IndexConfig{single, paired} {
		other := buildIndex(t, cfg, medicalPages())
		for _, term := range base.Terms() {
			for _, title := range base.Titles() {
				if a, b := base.Relevance(term, title), other.Relevance(term, title); math.Abs(a-b) > tolerance {
					t.Errorf("relevance(%s, %s) differs: %v vs %v", term, title, a, b)
				}
			}
		}
		for _, title := range base.Titles() {
			if a, b := base.Rank(title), other.Rank(title); math.Abs(a-b) > tolerance {
				t.Errorf("rank(%s) differs: %v vs %v", title, a, b)
			}
		}
	}
}

func TestSingleDocument(t *testing.T) {
	ix := buildIndex(t, testConfig(), []corpus.RawPage{{ID: 5, Title: "solo", Text: "alone [[solo]]"}})
	if w := ix.Weight("solo", "solo"); w != 1 {
		t.Errorf("weight(solo, solo) = %v, want 1", w)
	}
	if r := ix.Rank("solo"); math.Abs(r-1) > tolerance {
		t.Errorf("rank = %v, want 1", r)
	}
}

func TestEmptyCorpus(t *testing.T) {
	ix := buildIndex(t, testConfig(), nil)
	if ix.NumDocuments() != 0 || len(ix.Terms()) != 0 {
		t.Errorf("empty corpus produced %d documents", ix.NumDocuments())
	}
}

func TestDuplicateTitlesKeepFirst(t *testing.T) {
	ix := buildIndex(t, testConfig(), []corpus.RawPage{
		{ID: 1, Title: "dup", Text: "first"},
		{ID: 2, Title: "dup", Text: "second"},
	})
	d, _ := ix.Document("dup")
	if d.ID != 1 || ix.Stats().DuplicateTitles != 1 {
		t.Errorf("kept id %d with %d duplicates", d.ID, ix.Stats().DuplicateTitles)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBuilder(t, testConfig()).Build(ctx, medicalPages())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewBuilderRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Epsilon = 1
	if _, err := NewBuilder(cfg, textproc.Default(), nil); err == nil {
		t.Error("expected error for epsilon 1")
	}
	cfg = testConfig()
	cfg.DocShards = 0
	if _, err := NewBuilder(cfg, textproc.Default(), nil); err == nil {
		t.Error("expected error for zero doc shards")
	}
}

func TestBuildRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b, err := NewBuilder(testConfig(), textproc.Default(), m)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(context.Background(), threePages()); err != nil {
		t.Fatal(err)
	}
	var pb dto.Metric
	if err := m.DocsIndexedTotal.Write(&pb); err != nil || pb.GetCounter().GetValue() != 3 {
		t.Errorf("docs indexed = %v, want 3", pb.GetCounter().GetValue())
	}
	pb.Reset()
	if err := m.ShardDocCount.WithLabelValues("1").Write(&pb); err != nil || pb.GetGauge().GetValue() != 1 {
		t.Errorf("shard 1 documents = %v, want 1", pb.GetGauge().GetValue())
	}
}

func BenchmarkBuild(b *testing.B) {
	pages := make([]corpus.RawPage, 300)
	for i := range pages {
		pages[i] = corpus.RawPage{
			ID:    int64(i),
			Title: fmt.Sprintf("page %d", i),
			Text:  fmt.Sprintf("blood heart lung oxygen [[page %d]] [[page %d|see also]]", (i+1)%300, (i*7)%300),
		}
	}
	builder := newBuilder(b, testConfig())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(context.Background(), pages); err != nil {
			b.Fatal(err)
		}
	}
}
