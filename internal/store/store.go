// Package store persists summarized records with their embeddings in SQLite
// and answers nearest-neighbour queries over them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/TobiSchelling/F1Crawler/internal/ingest"
	"github.com/TobiSchelling/F1Crawler/internal/llm"
)

// FileName is the database file name inside the data directory.
const FileName = "f1crawler.db"

// Document is a stored record.
type Document struct {
	ID        string
	Category  string
	Source    string
	Content   string
	IndexedAt string
	// Score is the cosine similarity to the query; set by SimilaritySearch.
	Score float64
}

// Store wraps a SQLite database connection and the embedder used for both
// documents and queries.
type Store struct {
	conn     *sql.DB
	path     string
	embedder llm.Embedder
}

// Open creates or opens a SQLite vector store at the given path.
func Open(dbPath string, embedder llm.Embedder) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath, embedder: embedder}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// AddDocuments embeds the records and stores them in one transaction. The
// records are durable once it returns without error.
func (s *Store) AddDocuments(ctx context.Context, records []ingest.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("embedding documents: got %d vectors for %d records", len(vectors), len(records))
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (id, category, source, content, embedding, indexed_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, len(records))
	for i, r := range records {
		data, err := json.Marshal(vectors[i])
		if err != nil {
			return nil, fmt.Errorf("marshaling embedding: %w", err)
		}
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], r.Category, r.Source, r.Content, string(data), now); err != nil {
			return nil, fmt.Errorf("inserting document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
