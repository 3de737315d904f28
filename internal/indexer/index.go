// Package indexer builds the frozen search index: per-document term counts,
// document frequencies, TF-IDF relevance, the dense link weight matrix and
// the PageRank vector. Construction runs in phases, each parallel across
// shards with a barrier between phases; the resulting Index is read-only.
package indexer

import (
	"time"

	"github.com/taiga-forestry/multithreaded-search/internal/indexer/shard"
)

// Document is the per-page term summary produced during tokenization.
type Document struct {
	Title        string
	ID           int64
	TermCounts   map[string]int
	MaxTermCount int
}

// Stats summarizes a finished build.
type Stats struct {
	Documents          int           `json:"documents"`
	Terms              int           `json:"terms"`
	Edges              int           `json:"edges"`
	ValidEdges         int           `json:"valid_edges"`
	DanglingDocuments  int           `json:"dangling_documents"`
	DuplicateTitles    int           `json:"duplicate_titles"`
	PageRankIterations int           `json:"pagerank_iterations"`
	PageRankResidual   float64       `json:"pagerank_residual"`
	PageRankConverged  bool          `json:"pagerank_converged"`
	Elapsed            time.Duration `json:"elapsed"`
}

// termTable is the output of one term shard.
type termTable struct {
	df        map[string]int
	relevance map[string]map[string]float64
}

// Index is the immutable result of a build. All accessors are safe for
// concurrent use.
type Index struct {
	part     *shard.Partitioner
	titles   []string
	position map[string]int
	docs     map[string]*Document
	terms    []termTable
	links    map[string][]string
	weights  [][]float64
	ranks    []float64
	stats    Stats
}

// NumDocuments returns N, the number of indexed documents.
func (ix *Index) NumDocuments() int { return len(ix.titles) }

// Titles returns every document title in index order (ascending).
func (ix *Index) Titles() []string {
	out := make([]string, len(ix.titles))
	copy(out, ix.titles)
	return out
}

// Document returns the document with the given title.
func (ix *Index) Document(title string) (*Document, bool) {
	d, ok := ix.docs[title]
	return d, ok
}

// Links returns the distinct link targets recorded for title, including
// targets that do not resolve to a document.
func (ix *Index) Links(title string) []string {
	return ix.links[title]
}

// DocumentFrequency returns the number of documents containing term.
func (ix *Index) DocumentFrequency(term string) int {
	return ix.terms[ix.part.TermShard(term)].df[term]
}

// Postings returns title -> TF-IDF score for term. The map is shared and must
// not be modified.
func (ix *Index) Postings(term string) map[string]float64 {
	return ix.terms[ix.part.TermShard(term)].relevance[term]
}

// Relevance returns the TF-IDF score of term in title, zero if absent.
func (ix *Index) Relevance(term, title string) float64 {
	return ix.Postings(term)[title]
}

// Weight returns the transition weight from src to dst.
func (ix *Index) Weight(src, dst string) float64 {
	i, ok := ix.position[src]
	if !ok {
		return 0
	}
	j, ok := ix.position[dst]
	if !ok {
		return 0
	}
	return ix.weights[i][j]
}

// Row returns the weights out of title, indexed like Titles.
func (ix *Index) Row(title string) []float64 {
	i, ok := ix.position[title]
	if !ok {
		return nil
	}
	return ix.weights[i]
}

// Rank returns the PageRank of title.
func (ix *Index) Rank(title string) float64 {
	i, ok := ix.position[title]
	if !ok {
		return 0
	}
	return ix.ranks[i]
}

// Ranks returns title -> PageRank for every document.
func (ix *Index) Ranks() map[string]float64 {
	out := make(map[string]float64, len(ix.titles))
	for i, t := range ix.titles {
		out[t] = ix.ranks[i]
	}
	return out
}

// Terms returns every distinct term, unordered.
func (ix *Index) Terms() []string {
	var out []string
	for _, tt := range ix.terms {
		for term := range tt.df {
			out = append(out, term)
		}
	}
	return out
}

// Stats returns build statistics.
func (ix *Index) Stats() Stats { return ix.stats }
