// Package history persists per-delivery records. Only metadata is stored;
// media bytes are never written here.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one completed (or failed) delivery.
type Record struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Platform  string    `json:"platform"`
	Title     string    `json:"title,omitempty"`
	Path      string    `json:"path"` // proxy | transcode | none
	Status    string    `json:"status"`
	Bytes     int64     `json:"bytes"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed delivery history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			platform TEXT NOT NULL,
			title TEXT,
			path TEXT NOT NULL,
			status TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Save inserts a record, generating an ID and timestamp if absent.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, url, platform, title, path, status, bytes, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Platform, rec.Title, rec.Path, rec.Status, rec.Bytes, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, platform, title, path, status, bytes, error, created_at
		FROM deliveries ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var title, errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Platform, &title, &rec.Path, &rec.Status, &rec.Bytes, &errMsg, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		rec.Title = title.String
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
