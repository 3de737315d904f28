package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	apperrors "github.com/taiga-forestry/multithreaded-search/pkg/errors"
	"github.com/taiga-forestry/multithreaded-search/pkg/postgres"
	"github.com/taiga-forestry/multithreaded-search/pkg/resilience"
	"github.com/taiga-forestry/multithreaded-search/pkg/sqlite"
)

var connectRetry = resilience.RetryConfig{MaxAttempts: 3}

// Open builds the Source selected by cfg.Corpus.Source. Database backends
// are connected with retry; the returned close function releases them.
func Open(ctx context.Context, cfg *config.Config) (Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Corpus.Source {
	case config.SourceXML:
		return NewXMLSource(cfg.Corpus.Path), noop, nil
	case config.SourcePostgres:
		client, err := resilience.RetryValue(ctx, "postgres-connect", connectRetry, func() (*postgres.Client, error) {
			return postgres.New(ctx, cfg.Postgres)
		})
		if err != nil {
			return nil, nil, apperrors.CorpusLoad("postgres", err)
		}
		return NewSQLSource("postgres:"+cfg.Postgres.Database, client.DB, cfg.Corpus.Query), client.Close, nil
	case config.SourceSQLite:
		client, err := resilience.RetryValue(ctx, "sqlite-open", connectRetry, func() (*sqlite.Client, error) {
			return sqlite.New(ctx, cfg.SQLite)
		})
		if err != nil {
			return nil, nil, apperrors.CorpusLoad("sqlite", err)
		}
		return NewSQLSource("sqlite:"+cfg.SQLite.Path, client.DB, cfg.Corpus.Query), client.Close, nil
	case config.SourceKafka:
		return NewKafkaSource(cfg.Kafka), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}

// Load runs src.Load bounded by cfg.LoadTimeout. Any failure is reported as
// a corpus load error, before indexing begins.
func Load(ctx context.Context, src Source, cfg config.CorpusConfig) (*Result, error) {
	logger := slog.Default().With("component", "corpus", "source", src.Name())
	logger.Info("loading corpus")
	res, err := resilience.WithTimeout(ctx, cfg.LoadTimeout, "corpus load", src.Load)
	if err != nil {
		logger.Error("corpus load failed", "error", err)
		return nil, apperrors.CorpusLoad(src.Name(), err)
	}
	return res, nil
}
