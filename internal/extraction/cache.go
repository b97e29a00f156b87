package extraction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS extraction_cache (
	content_hash TEXT PRIMARY KEY,
	document_name TEXT NOT NULL,
	fields_json BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

// Cache stores validated extraction JSON keyed by document content hash.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the sqlite cache at path. ":memory:" keeps it in
// process.
func OpenCache(ctx context.Context, path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached JSON for hash, or false on a miss.
func (c *Cache) Get(ctx context.Context, hash string) ([]byte, bool, error) {
	var content []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT fields_json FROM extraction_cache WHERE content_hash = ?`, hash).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache: %w", err)
	}
	return content, true, nil
}

// Put stores content for hash, replacing an earlier entry.
func (c *Cache) Put(ctx context.Context, hash, documentName string, content []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO extraction_cache (content_hash, document_name, fields_json, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET
		   document_name = excluded.document_name,
		   fields_json = excluded.fields_json,
		   created_at = excluded.created_at`,
		hash, documentName, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// CachedExtractor reuses an earlier reading of the same document bytes.
type CachedExtractor struct {
	next   Extractor
	cache  *Cache
	logger *slog.Logger
}

// NewCachedExtractor wraps next with cache.
func NewCachedExtractor(next Extractor, cache *Cache, logger *slog.Logger) *CachedExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedExtractor{next: next, cache: cache, logger: logger}
}

// Extract serves from the cache when the content hash is known and otherwise
// calls the wrapped extractor. Cache errors never fail the extraction.
func (e *CachedExtractor) Extract(ctx context.Context, req Request) (Result, error) {
	if req.ContentHash == "" {
		return e.next.Extract(ctx, req)
	}

	content, ok, err := e.cache.Get(ctx, req.ContentHash)
	if err != nil {
		e.logger.Warn("extraction.cache.read_error", "content_hash", req.ContentHash, "error", err)
	}
	if ok {
		fields, err := DecodeFields(content)
		if err == nil {
			e.logger.Info("extraction.cache.hit",
				"session_id", req.SessionID,
				"content_hash", req.ContentHash)
			return Result{Fields: fields, Raw: content, Cached: true}, nil
		}
		e.logger.Warn("extraction.cache.decode_error", "content_hash", req.ContentHash, "error", err)
	}

	res, err := e.next.Extract(ctx, req)
	if err != nil {
		return res, err
	}
	if err := e.cache.Put(ctx, req.ContentHash, req.DocumentName, res.Raw); err != nil {
		e.logger.Warn("extraction.cache.write_error", "content_hash", req.ContentHash, "error", err)
	}
	return res, nil
}
