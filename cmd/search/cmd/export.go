package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taiga-forestry/multithreaded-search/internal/corpus"
	"github.com/taiga-forestry/multithreaded-search/pkg/kafka"
)

var exportBatch int

var exportCmd = &cobra.Command{
	Use:   "export <corpus.xml>",
	Short: "Publish an XML corpus to the Kafka pages topic",
	Long: `export reads every page of an XML corpus and publishes it as a JSON
record to kafka.topics.pages, so that a later run can use corpus.source=kafka.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportBatch < 1 {
			return fmt.Errorf("--batch must be at least 1, got %d", exportBatch)
		}
		ctx := cmd.Context()
		log := slog.Default().With("component", "export", "topic", cfg.Kafka.Topics.Pages)

		records, err := corpus.NewXMLSource(args[0]).Records(ctx)
		if err != nil {
			return err
		}
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Pages)
		defer producer.Close()

		events := corpus.Events(records)
		for start := 0; start < len(events); start += exportBatch {
			end := min(start+exportBatch, len(events))
			if err := producer.PublishBatch(ctx, events[start:end]); err != nil {
				return err
			}
			log.Debug("batch exported", "from", start, "to", end)
		}
		log.Info("corpus exported", "pages", len(events))
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportBatch, "batch", 500, "pages per Kafka write")
	rootCmd.AddCommand(exportCmd)
}
