// Package extract turns a document's title and text into a flat sequence of
// classified items: ordinary stemmed terms and outgoing link edges. It holds
// no shared state; the index builder folds the items into its per-shard
// tables afterwards.
package extract

import (
	"strings"

	"github.com/gammazero/deque"
)

// Analyzer is the linguistic processor used during extraction.
type Analyzer interface {
	Tokenize(text string) []string
	IsStopWord(token string) bool
	Stem(token string) string
	IsLink(token string) bool
}

// Kind distinguishes the items produced by Extract.
type Kind uint8

const (
	KindTerm Kind = iota
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Item is one classified element of a document. For KindTerm, Value is the
// stemmed term; for KindEdge, Value is the link target.
type Item struct {
	Kind  Kind
	Value string
}

const categoryPrefix = "category:"

// Extractor classifies tokens with an Analyzer.
type Extractor struct {
	analyzer Analyzer
}

// New returns an Extractor backed by a.
func New(a Analyzer) *Extractor {
	return &Extractor{analyzer: a}
}

// Extract tokenizes title and text and drains the combined tokens through a
// LIFO work queue. A link token yields an edge and pushes its display tokens
// back onto the queue; a stop word is dropped; anything else is stemmed into
// a term. Link display tokens never contain link delimiters, so every token
// is expanded at most once.
func (e *Extractor) Extract(title, text string) []Item {
	var queue deque.Deque[string]
	for _, tok := range e.analyzer.Tokenize(title) {
		queue.PushBack(tok)
	}
	for _, tok := range e.analyzer.Tokenize(text) {
		queue.PushBack(tok)
	}

	items := make([]Item, 0, queue.Len())
	for queue.Len() > 0 {
		tok := queue.PopBack()
		switch {
		case e.analyzer.IsLink(tok):
			link := ParseLink(tok[2:len(tok)-2], e.analyzer.Tokenize)
			if link.Target != "" {
				items = append(items, Item{Kind: KindEdge, Value: link.Target})
			}
			for _, sub := range link.Tokens {
				queue.PushBack(sub)
			}
		case e.analyzer.IsStopWord(tok):
		default:
			if stem := e.analyzer.Stem(tok); stem != "" {
				items = append(items, Item{Kind: KindTerm, Value: stem})
			}
		}
	}
	return items
}

// Link is a parsed link body.
type Link struct {
	Target string
	Tokens []string
}

// ParseLink classifies the body of a [[...]] token (delimiters already
// stripped):
//
//	target|display   edge to target, display text tokenized
//	category:name    edge to the whole body, name tokenized plus "category"
//	target           edge to target, target tokenized
//
// The category prefix is matched case-insensitively. Targets are trimmed.
func ParseLink(body string, tokenize func(string) []string) Link {
	if parts := strings.Split(body, "|"); len(parts) > 1 {
		// Only the first display segment is text; later segments are ignored.
		return Link{Target: strings.TrimSpace(parts[0]), Tokens: tokenize(parts[1])}
	}
	if i := strings.Index(strings.ToLower(body), categoryPrefix); i >= 0 {
		tokens := tokenize(body[i+len(categoryPrefix):])
		return Link{Target: strings.TrimSpace(body), Tokens: append(tokens, "category")}
	}
	return Link{Target: strings.TrimSpace(body), Tokens: tokenize(body)}
}

// Summary is the fold of one document's items.
type Summary struct {
	TermCounts   map[string]int
	MaxTermCount int
	Targets      []string
}

// Fold counts terms and collects distinct edge targets in first-seen order.
func Fold(items []Item) Summary {
	s := Summary{TermCounts: make(map[string]int)}
	seen := make(map[string]struct{})
	for _, it := range items {
		switch it.Kind {
		case KindTerm:
			s.TermCounts[it.Value]++
			if c := s.TermCounts[it.Value]; c > s.MaxTermCount {
				s.MaxTermCount = c
			}
		case KindEdge:
			if _, ok := seen[it.Value]; ok {
				continue
			}
			seen[it.Value] = struct{}{}
			s.Targets = append(s.Targets, it.Value)
		}
	}
	return s
}
