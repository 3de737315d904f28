package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/taiga-forestry/multithreaded-search/internal/searcher/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index as MCP tools over stdio",
	Long: `mcp builds the index and then serves the search, rank and index_stats
tools on stdin/stdout using the Model Context Protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, cfg, nil, nil)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.build(ctx); err != nil {
			return err
		}
		return server.ServeStdio(mcptools.NewServer("search", version, a.service, cfg.Search.UsePageRank))
	},
}

const version = "0.1.0"

func init() {
	rootCmd.AddCommand(mcpCmd)
}
