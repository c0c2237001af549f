// Package search receives plain text extracted from rendered pages and
// maintains the site search index. The SQLite sink is optional; an
// unconfigured build uses the no-op indexer.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Entry is the extracted text of one rendered page.
type Entry struct {
	Href  string
	Title string
	Text  string
}

// Indexer consumes extracted page text.
type Indexer interface {
	Index(ctx context.Context, entry Entry) error
	Close() error
}

// Noop discards everything, used when no search index is configured.
type Noop struct{}

func (Noop) Index(context.Context, Entry) error { return nil }
func (Noop) Close() error                       { return nil }

// SQLiteIndex stores entries in a SQLite file next to the build output.
type SQLiteIndex struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteIndex opens (or creates) the index database.
// Use ":memory:" for an in-memory index.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize search schema: %w", err)
	}
	return idx, nil
}

func (s *SQLiteIndex) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		href TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pages_title ON pages(title);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Index upserts one page's extracted text. Re-rendering a page replaces
// its previous entry.
func (s *SQLiteIndex) Index(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pages (href, title, body) VALUES (?, ?, ?) ON CONFLICT(href) DO UPDATE SET title = excluded.title, body = excluded.body",
		entry.Href, entry.Title, entry.Text,
	)
	if err != nil {
		return fmt.Errorf("index page %s: %w", entry.Href, err)
	}
	return nil
}

// Query returns the hrefs of pages whose text contains the term,
// ordered by href.
func (s *SQLiteIndex) Query(ctx context.Context, term string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT href FROM pages WHERE body LIKE '%' || ? || '%' OR title LIKE '%' || ? || '%' ORDER BY href",
		term, term,
	)
	if err != nil {
		return nil, fmt.Errorf("query search index: %w", err)
	}
	defer rows.Close()

	var hrefs []string
	for rows.Next() {
		var href string
		if err := rows.Scan(&href); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		hrefs = append(hrefs, href)
	}
	return hrefs, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
