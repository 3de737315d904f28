// Package mcptools exposes the search service as MCP tools so that an
// assistant can query the index over stdio.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taiga-forestry/multithreaded-search/internal/indexer"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/query"
)

// Service is the subset of searcher.Service the tools need.
type Service interface {
	Search(ctx context.Context, req searcher.Request) (*query.Response, error)
	Document(title string) (*searcher.DocumentInfo, error)
	Stats() (indexer.Stats, error)
}

// NewServer returns an MCP server with every search tool registered.
func NewServer(name, version string, svc Service, usePageRank bool) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	Register(s, svc, usePageRank)
	return s
}

// Register adds the search tools to s.
func Register(s *server.MCPServer, svc Service, usePageRank bool) {
	s.AddTool(searchTool(), searchHandler(svc, usePageRank))
	s.AddTool(rankTool(), rankHandler(svc))
	s.AddTool(statsTool(), statsHandler(svc))
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Search the indexed corpus. Returns the top titles ranked by TF-IDF, optionally weighted by PageRank."),
		mcp.WithString("query",
			mcp.Description("Free-text query"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
		),
		mcp.WithBoolean("pagerank",
			mcp.Description("Multiply relevance by document rank"),
		),
	)
}

func searchHandler(svc Service, usePageRank bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := strings.TrimSpace(req.GetString("query", ""))
		if q == "" {
			return toolError(errors.New("query is required"))
		}
		resp, err := svc.Search(ctx, searcher.Request{
			Query:       q,
			Limit:       req.GetInt("limit", 0),
			UsePageRank: req.GetBool("pagerank", usePageRank),
			Surface:     "mcp",
		})
		if err != nil {
			return toolError(err)
		}
		if resp.NoResults {
			return mcp.NewToolResultText(query.NoResultsMessage), nil
		}
		var sb strings.Builder
		for _, r := range resp.Results {
			fmt.Fprintf(&sb, "%d: %s  (%.6f)\n", r.Rank, r.Title, r.Score)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func rankTool() mcp.Tool {
	return mcp.NewTool("rank",
		mcp.WithDescription("Show the rank, term summary and outgoing links of one document."),
		mcp.WithString("title",
			mcp.Description("Document title"),
			mcp.Required(),
		),
	)
}

func rankHandler(svc Service) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := req.GetString("title", "")
		if strings.TrimSpace(title) == "" {
			return toolError(errors.New("title is required"))
		}
		info, err := svc.Document(title)
		if err != nil {
			return toolError(err)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "title: %s\nid: %d\nrank: %.6f\ndistinct terms: %d\nmax term count: %d\n",
			info.Title, info.ID, info.Rank, info.Terms, info.MaxCount)
		if len(info.Links) > 0 {
			fmt.Fprintf(&sb, "links: %s\n", strings.Join(info.Links, ", "))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func statsTool() mcp.Tool {
	return mcp.NewTool("index_stats",
		mcp.WithDescription("Summarize the built index."),
	)
}

func statsHandler(svc Service) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := svc.Stats()
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"documents: %d\nterms: %d\nedges: %d (valid %d)\ndangling documents: %d\npagerank: %d iterations, residual %.3g, converged %t\nbuild time: %s\n",
			st.Documents, st.Terms, st.Edges, st.ValidEdges, st.DanglingDocuments,
			st.PageRankIterations, st.PageRankResidual, st.PageRankConverged, st.Elapsed,
		)), nil
	}
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
