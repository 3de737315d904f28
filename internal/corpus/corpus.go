// Package corpus reads raw page records from the configured source: an XML
// dump, a PostgreSQL or SQLite table, or a Kafka topic of JSON records. Every
// source validates records the same way; a record whose id is not an integer
// is skipped and counted rather than failing the whole load.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	apperrors "github.com/taiga-forestry/multithreaded-search/pkg/errors"
)

// RawPage is one page as supplied by a source, after normalization.
type RawPage struct {
	ID    int64
	Title string
	Text  string
}

// Record is a page as it appears at the source boundary, before its id is
// parsed.
type Record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Result is the outcome of loading a source.
type Result struct {
	Pages   []RawPage
	Skipped int
}

// Source yields the full corpus in one call.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Result, error)
}

// ValidationError describes why a record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s:%s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidRecord
}

// Normalize validates rec and converts it to a RawPage. Title and text are
// trimmed and lower-cased.
func Normalize(rec Record) (RawPage, error) {
	idText := strings.TrimSpace(rec.ID)
	if idText == "" {
		return RawPage{}, &ValidationError{Field: "id", Reason: "id is required"}
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return RawPage{}, &ValidationError{Field: "id", Reason: fmt.Sprintf("id %q is not an integer", idText)}
	}
	return RawPage{
		ID:    id,
		Title: strings.ToLower(strings.TrimSpace(rec.Title)),
		Text:  strings.ToLower(strings.TrimSpace(rec.Text)),
	}, nil
}

// collector accumulates normalized pages and skipped records for a source.
type collector struct {
	result Result
	logger *slog.Logger
}

func newCollector(source string) *collector {
	return &collector{logger: slog.Default().With("component", "corpus", "source", source)}
}

func (c *collector) add(rec Record) {
	page, err := Normalize(rec)
	if err != nil {
		c.skip(rec.Title, err)
		return
	}
	c.result.Pages = append(c.result.Pages, page)
}

func (c *collector) skip(title string, err error) {
	c.result.Skipped++
	c.logger.Warn("skipping page record", "title", title, "error", err)
}

func (c *collector) done() *Result {
	c.logger.Info("corpus loaded", "pages", len(c.result.Pages), "skipped", c.result.Skipped)
	return &c.result
}
