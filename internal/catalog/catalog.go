// Package catalog provides the SQLite ledger of ingested sources.
// The vector collection itself holds no browsable inventory, so ingest
// operations are recorded here to back the status endpoint and CLI.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// Catalog records ingest runs in SQLite.
type Catalog struct {
	db *sql.DB
}

// IngestRecord is one row of the ledger. Re-ingesting a source appends a new
// row rather than replacing the old one, mirroring the duplicate semantics of
// the vector collection.
type IngestRecord struct {
	ID         int64             `json:"id"`
	SourceID   string            `json:"source_id"`
	SourceType models.SourceType `json:"source_type"`
	ChunkCount int               `json:"chunk_count"`
	IngestedAt time.Time         `json:"ingested_at"`
}

// New opens or creates the catalog database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func New(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ingests_source_id ON ingests(source_id);
	CREATE INDEX IF NOT EXISTS idx_ingests_ingested_at ON ingests(ingested_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordIngest appends one ledger row for a completed ingest.
func (c *Catalog) RecordIngest(ctx context.Context, report *models.IngestReport) error {
	at := report.IngestedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO ingests (source_id, source_type, chunk_count, ingested_at)
		 VALUES (?, ?, ?, ?)`,
		report.SourceID, string(report.SourceType), report.ChunksIndexed, at,
	)
	if err != nil {
		return fmt.Errorf("record ingest: %w", err)
	}
	return nil
}

// ListRecent returns up to limit ledger rows, newest first.
func (c *Catalog) ListRecent(ctx context.Context, limit int) ([]*IngestRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source_id, source_type, chunk_count, ingested_at
		 FROM ingests ORDER BY ingested_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ingests: %w", err)
	}
	defer rows.Close()

	var records []*IngestRecord
	for rows.Next() {
		var rec IngestRecord
		var sourceType string
		if err := rows.Scan(&rec.ID, &rec.SourceID, &sourceType, &rec.ChunkCount, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan ingest row: %w", err)
		}
		rec.SourceType = models.SourceType(sourceType)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CountSources returns the number of distinct ingested source ids.
func (c *Catalog) CountSources(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT source_id) FROM ingests`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return n, nil
}

// CountChunks returns the total number of chunks recorded across all ingests.
func (c *Catalog) CountChunks(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	err := c.db.QueryRowContext(ctx, `SELECT SUM(chunk_count) FROM ingests`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n.Int64, nil
}

// Clear removes all ledger rows. Called on collection rebuild.
func (c *Catalog) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM ingests`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
