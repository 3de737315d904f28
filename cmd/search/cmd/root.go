package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taiga-forestry/multithreaded-search/internal/repl"
	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	"github.com/taiga-forestry/multithreaded-search/pkg/logger"
)

var (
	configPath string
	logLevel   string
	corpusPath string
	usePR      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "search",
	Short: "Build a TF-IDF and PageRank index over a corpus and query it",
	Long: `search loads a corpus of pages, builds a sharded TF-IDF index and a
PageRank vector over the pages' wiki links, then answers queries.

Without a sub-command it starts an interactive prompt. Each line is a query;
":quit" exits.

Examples:
  search --corpus pages.xml
  search query --corpus pages.xml "heart disease"
  search serve --config configs/search.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if corpusPath != "" {
			cfg.Corpus.Source = config.SourceXML
			cfg.Corpus.Path = corpusPath
		}
		if cmd.Flags().Changed("pagerank") {
			cfg.Search.UsePageRank = usePR
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		return nil
	},
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

		return repl.New(a.service, cfg.Search.DefaultLimit, cfg.Search.UsePageRank).Run(ctx, os.Stdin, os.Stdout)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "XML corpus file (overrides corpus.source and corpus.path)")
	rootCmd.PersistentFlags().BoolVar(&usePR, "pagerank", true, "weight relevance by PageRank")
}
