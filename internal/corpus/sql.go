package corpus

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLSource reads pages with a query returning (id, title, text) columns.
// It serves both the PostgreSQL and the SQLite backends. NULL columns read as
// empty strings.
type SQLSource struct {
	name  string
	db    *sql.DB
	query string
}

// NewSQLSource returns a source running query against db. name identifies
// the backend in logs.
func NewSQLSource(name string, db *sql.DB, query string) *SQLSource {
	return &SQLSource{name: name, db: db, query: query}
}

func (s *SQLSource) Name() string { return s.name }

func (s *SQLSource) Load(ctx context.Context) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	c := newCollector(s.name)
	for rows.Next() {
		var id, title, text sql.NullString
		if err := rows.Scan(&id, &title, &text); err != nil {
			return nil, fmt.Errorf("scanning page row: %w", err)
		}
		c.add(Record{ID: id.String, Title: title.String, Text: text.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating page rows: %w", err)
	}
	return c.done(), nil
}
