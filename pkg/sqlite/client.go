// Package sqlite opens a mattn/go-sqlite3 database in read-only mode for
// corpus loading.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/taiga-forestry/multithreaded-search/pkg/config"
)

type Client struct {
	DB   *sql.DB
	path string
}

// New opens the database at cfg.Path. The file must already exist; a missing
// file is reported instead of silently creating an empty database.
func New(ctx context.Context, cfg config.SQLiteConfig) (*Client, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("sqlite database %s: %w", cfg.Path, err)
	}
	db, err := sql.Open("sqlite3", "file:"+cfg.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", cfg.Path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database %s: %w", cfg.Path, err)
	}
	return &Client{DB: db, path: cfg.Path}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}
