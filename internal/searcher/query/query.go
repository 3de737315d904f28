// Package query answers free-text queries against a frozen index by summing
// TF-IDF relevance over the query terms, optionally scaled by PageRank.
package query

import (
	"log/slog"
	"strings"
)

// NoResultsMessage is shown when no document scores above zero.
const NoResultsMessage = "NO SEARCH RESULTS MATCHED YOUR QUERY. TRY AGAIN."

// Analyzer is the subset of the linguistic processor used for queries.
type Analyzer interface {
	Tokenize(text string) []string
	IsStopWord(token string) bool
	Stem(token string) string
}

// Index is the read side of the built index.
type Index interface {
	Postings(term string) map[string]float64
	Rank(title string) float64
	NumDocuments() int
}

// Result is one ranked document.
type Result struct {
	Rank  int     `json:"rank"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Response is the answer to one query. NoResults is set when nothing scored
// above zero, in which case Results is empty.
type Response struct {
	Query       string   `json:"query"`
	Terms       []string `json:"terms"`
	UsePageRank bool     `json:"use_pagerank"`
	Results     []Result `json:"results"`
	NoResults   bool     `json:"no_results"`
}

// Engine scores queries. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	index    Index
	analyzer Analyzer
	logger   *slog.Logger
}

func NewEngine(index Index, analyzer Analyzer) *Engine {
	return &Engine{
		index:    index,
		analyzer: analyzer,
		logger:   slog.Default().With("component", "query-engine"),
	}
}

// TokenizeQuery tokenizes input, drops stop words and stems the rest.
// Duplicates are kept.
func (e *Engine) TokenizeQuery(input string) []string {
	tokens := e.analyzer.Tokenize(input)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if e.analyzer.IsStopWord(tok) {
			continue
		}
		if stem := e.analyzer.Stem(tok); stem != "" {
			terms = append(terms, stem)
		}
	}
	return terms
}

// Score sums the relevance of each term per document and, if usePageRank is
// set, multiplies the sum by the document's rank. Documents that contain no
// query term are omitted; their score is zero.
func (e *Engine) Score(terms []string, usePageRank bool) map[string]float64 {
	scores := make(map[string]float64)
	for _, term := range terms {
		for title, rel := range e.index.Postings(term) {
			scores[title] += rel
		}
	}
	if usePageRank {
		for title, s := range scores {
			scores[title] = s * e.index.Rank(title)
		}
	}
	return scores
}

// Search runs the whole query pipeline and returns at most k results.
func (e *Engine) Search(input string, k int, usePageRank bool) *Response {
	return e.Answer(input, e.TokenizeQuery(input), k, usePageRank)
}

// Answer scores already tokenized terms. input is only echoed back.
func (e *Engine) Answer(input string, terms []string, k int, usePageRank bool) *Response {
	results := RankTop(e.Score(terms, usePageRank), k)
	resp := &Response{
		Query:       strings.TrimSpace(input),
		Terms:       terms,
		UsePageRank: usePageRank,
		Results:     results,
		NoResults:   len(results) == 0,
	}
	e.logger.Debug("query answered",
		"query", resp.Query,
		"terms", len(terms),
		"hits", len(results),
		"pagerank", usePageRank,
	)
	return resp
}
