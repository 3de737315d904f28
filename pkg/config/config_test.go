package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Index.DocShards != 10 {
		t.Errorf("DocShards = %d, want 10", cfg.Index.DocShards)
	}
	if cfg.Index.TermShards != 26 {
		t.Errorf("TermShards = %d, want 26", cfg.Index.TermShards)
	}
	if cfg.Index.Epsilon != 0.15 {
		t.Errorf("Epsilon = %g, want 0.15", cfg.Index.Epsilon)
	}
	if cfg.Index.Delta != 0.001 {
		t.Errorf("Delta = %g, want 0.001", cfg.Index.Delta)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("DefaultLimit = %d, want 10", cfg.Search.DefaultLimit)
	}
	if !cfg.Search.UsePageRank {
		t.Error("UsePageRank should default to true")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
corpus:
  source: sqlite
index:
  docShards: 4
  termShards: 13
  epsilon: 0.2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Corpus.Source != SourceSQLite {
		t.Errorf("Source = %q, want sqlite", cfg.Corpus.Source)
	}
	if cfg.Index.DocShards != 4 || cfg.Index.TermShards != 13 {
		t.Errorf("shards = %d/%d, want 4/13", cfg.Index.DocShards, cfg.Index.TermShards)
	}
	if cfg.Index.Epsilon != 0.2 {
		t.Errorf("Epsilon = %g, want 0.2", cfg.Index.Epsilon)
	}
	// untouched keys keep their defaults
	if cfg.Index.Delta != 0.001 {
		t.Errorf("Delta = %g, want default 0.001", cfg.Index.Delta)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MTS_INDEX_DOC_SHARDS", "3")
	t.Setenv("MTS_CORPUS_PATH", "/tmp/pages.xml")
	t.Setenv("MTS_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Index.DocShards != 3 {
		t.Errorf("DocShards = %d, want 3", cfg.Index.DocShards)
	}
	if cfg.Corpus.Path != "/tmp/pages.xml" {
		t.Errorf("Path = %q", cfg.Corpus.Path)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Brokers = %v, want 2 entries", cfg.Kafka.Brokers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero doc shards", func(c *Config) { c.Index.DocShards = 0 }, "docShards"},
		{"too many term shards", func(c *Config) { c.Index.TermShards = 27 }, "termShards"},
		{"epsilon one", func(c *Config) { c.Index.Epsilon = 1 }, "epsilon"},
		{"negative delta", func(c *Config) { c.Index.Delta = -1 }, "delta"},
		{"no iterations", func(c *Config) { c.Index.MaxIterations = 0 }, "maxIterations"},
		{"unknown source", func(c *Config) { c.Corpus.Source = "ftp" }, "corpus.source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../configs/search.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.RateLimit != 600 || cfg.Index.TermShards != 26 || cfg.Redis.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
