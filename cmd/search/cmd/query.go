package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taiga-forestry/multithreaded-search/internal/repl"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher"
)

var (
	queryLimit int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <terms...>",
	Short: "Build the index and answer a single query",
	Long: `query builds the index, answers one query and exits.

Examples:
  search query --corpus pages.xml heart
  search query --corpus pages.xml --limit 3 --json "blood pressure"`,
	Args: cobra.MinimumNArgs(1),
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

		resp, err := a.service.Search(ctx, searcher.Request{
			Query:       strings.Join(args, " "),
			Limit:       queryLimit,
			UsePageRank: cfg.Search.UsePageRank,
			Surface:     "cli",
		})
		if err != nil {
			return err
		}
		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		return repl.Print(os.Stdout, resp)
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum number of results (default search.defaultLimit)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the response as JSON")
	rootCmd.AddCommand(queryCmd)
}
