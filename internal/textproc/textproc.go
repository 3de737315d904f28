// Package textproc is the linguistic processor shared by indexing and
// querying. It lower-cases and tokenizes text, recognizes [[...]] link
// tokens, filters stop-words and stems terms with the Porter2 (snowball)
// English stemmer.
//
// A Processor is immutable after construction and safe for concurrent use.
package textproc

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

//go:embed stopwords.txt
var defaultStopWords string

// tokenPattern matches, in order of preference: a whole link token, a word
// with an inner apostrophe, and a plain alphanumeric run.
var tokenPattern = regexp.MustCompile(`\[\[[^\[]+?\]\]|[a-zA-Z0-9]+'[a-zA-Z0-9]+|[a-zA-Z0-9]+`)

// Processor holds the stop-word set.
type Processor struct {
	stopWords map[string]struct{}
}

// New returns a Processor using the stop-word list at path, one word per
// line. An empty path selects the embedded English list.
func New(path string) (*Processor, error) {
	if path == "" {
		return FromReader(strings.NewReader(defaultStopWords))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stop-word list: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

// Default returns a Processor backed by the embedded stop-word list.
func Default() *Processor {
	p, err := FromReader(strings.NewReader(defaultStopWords))
	if err != nil {
		panic(err)
	}
	return p
}

// FromReader builds a Processor from a newline-separated stop-word list.
// Blank lines are ignored and words are lower-cased.
func FromReader(r io.Reader) (*Processor, error) {
	p := &Processor{stopWords: make(map[string]struct{}, 200)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" {
			continue
		}
		p.stopWords[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stop-word list: %w", err)
	}
	return p, nil
}

// Tokenize splits text into lower-cased tokens in order of appearance. Link
// tokens are returned whole, brackets included.
func (p *Processor) Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.ToLower(m)
	}
	return matches
}

// IsStopWord reports whether token is in the stop-word set.
func (p *Processor) IsStopWord(token string) bool {
	_, ok := p.stopWords[token]
	return ok
}

// Stem reduces token to its Porter2 stem.
func (p *Processor) Stem(token string) string {
	return english.Stem(token, false)
}

// IsLink reports whether token has the [[...]] link surface form.
func IsLink(token string) bool {
	return len(token) >= 4 && strings.HasPrefix(token, "[[") && strings.HasSuffix(token, "]]")
}

// IsLink is the method form of the package-level IsLink.
func (p *Processor) IsLink(token string) bool {
	return IsLink(token)
}

// StopWordCount returns the size of the stop-word set.
func (p *Processor) StopWordCount() int {
	return len(p.stopWords)
}
