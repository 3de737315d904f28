// Package repl implements the interactive query loop: one query per input
// line, ranked titles printed back, ":quit" to leave.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/taiga-forestry/multithreaded-search/internal/searcher"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/query"
)

const (
	// Prompt is written before every line is read.
	Prompt = "search> "
	// QuitCommand ends the loop.
	QuitCommand = ":quit"
)

// Searcher answers a single query.
type Searcher interface {
	Search(ctx context.Context, req searcher.Request) (*query.Response, error)
}

// Loop reads queries from in and writes results to out.
type Loop struct {
	searcher    Searcher
	limit       int
	usePageRank bool
	logger      *slog.Logger
}

// New returns a Loop printing at most limit results per query. A
// non-positive limit selects query.DefaultLimit.
func New(s Searcher, limit int, usePageRank bool) *Loop {
	if limit <= 0 {
		limit = query.DefaultLimit
	}
	return &Loop{
		searcher:    s,
		limit:       limit,
		usePageRank: usePageRank,
		logger:      slog.Default().With("component", "repl"),
	}
}

// Run prompts until ":quit", end of input or ctx is cancelled. End of input
// and ":quit" both return nil. A failed query is reported on out and the
// loop continues.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(out, Prompt); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == QuitCommand {
			return nil
		}
		if err := l.answer(ctx, line, out); err != nil {
			return err
		}
	}
}

func (l *Loop) answer(ctx context.Context, line string, out io.Writer) error {
	resp, err := l.searcher.Search(ctx, searcher.Request{
		Query:       line,
		Limit:       l.limit,
		UsePageRank: l.usePageRank,
		Surface:     "repl",
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("query failed", "query", line, "error", err)
		_, werr := fmt.Fprintf(out, "error: %v\n", err)
		return werr
	}
	return Print(out, resp)
}

// Print writes resp as numbered titles, or the no-results message.
func Print(out io.Writer, resp *query.Response) error {
	if resp.NoResults {
		_, err := fmt.Fprintln(out, query.NoResultsMessage)
		return err
	}
	for _, r := range resp.Results {
		if _, err := fmt.Fprintf(out, "%d: %s\n", r.Rank, r.Title); err != nil {
			return err
		}
	}
	return nil
}
