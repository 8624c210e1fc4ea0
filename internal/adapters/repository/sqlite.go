package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const memoryPath = ":memory:"

// SQLiteCache is a Cache backed by a single SQLite file. Each bucket is one
// row holding the whole list as JSON, so a Save is an atomic replace.
type SQLiteCache struct {
	db    *sql.DB
	mu    sync.RWMutex
	clock func() time.Time
	log   logger.Logger
}

// OpenSQLite opens (and creates if needed) the cache database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteCache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetOrDiscard().Named("cache")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// One writer: SQLite serializes writes anyway and an in-memory database
	// only exists on its own connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}
	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout=%d", o.busyTimeout.Milliseconds())}
	if path != memoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	c := &SQLiteCache{db: db, clock: o.clock, log: o.log}
	if err := c.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache tables: %w", err)
	}
	if n, err := c.Count(ctx); err == nil {
		metrics.UpdateCacheBuckets(n)
	}
	return c, nil
}

func (c *SQLiteCache) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS buckets (
		bucket     TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		items      INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS migrations (
		account_id  TEXT PRIMARY KEY,
		migrated_at DATETIME NOT NULL
	);
	`
	_, err := c.db.ExecContext(ctx, schema)
	return err
}

// Load implements Cache.
func (c *SQLiteCache) Load(ctx context.Context, bucket string) (list model.List, ok bool, err error) {
	start := time.Now()
	defer func() { observe("load", start, err) }()
	if bucket == "" {
		return nil, false, ErrEmptyBucket
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var payload string
	err = c.db.QueryRowContext(ctx, `SELECT payload FROM buckets WHERE bucket = ?`, bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.List{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load bucket %q: %w", bucket, err)
	}
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, false, fmt.Errorf("%w: bucket %q: %v", ErrCorrupt, bucket, err)
	}
	return list.Normalize(), true, nil
}

// Save implements Cache.
func (c *SQLiteCache) Save(ctx context.Context, bucket string, list model.List) (err error) {
	start := time.Now()
	defer func() { observe("save", start, err) }()
	if bucket == "" {
		return ErrEmptyBucket
	}
	if list == nil {
		list = model.List{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode bucket %q: %w", bucket, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO buckets (bucket, payload, items, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(bucket) DO UPDATE SET
			payload = excluded.payload,
			items = excluded.items,
			updated_at = excluded.updated_at`,
		bucket, string(payload), len(list), c.clock().UTC())
	if err != nil {
		return fmt.Errorf("save bucket %q: %w", bucket, err)
	}
	c.refreshGauge(ctx)
	return nil
}

// Delete implements Cache.
func (c *SQLiteCache) Delete(ctx context.Context, bucket string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()
	if bucket == "" {
		return ErrEmptyBucket
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err = c.db.ExecContext(ctx, `DELETE FROM buckets WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("delete bucket %q: %w", bucket, err)
	}
	c.refreshGauge(ctx)
	return nil
}

// Migrated implements Cache.
func (c *SQLiteCache) Migrated(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, ErrEmptyAccount
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var one int
	err := c.db.QueryRowContext(ctx, `SELECT 1 FROM migrations WHERE account_id = ?`, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read migration marker: %w", err)
	}
	return true, nil
}

// MarkMigrated implements Cache. The first marker wins.
func (c *SQLiteCache) MarkMigrated(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrEmptyAccount
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO migrations (account_id, migrated_at) VALUES (?, ?)`,
		accountID, c.clock().UTC())
	if err != nil {
		return fmt.Errorf("write migration marker: %w", err)
	}
	return nil
}

// Count implements Cache.
func (c *SQLiteCache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buckets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count buckets: %w", err)
	}
	return n, nil
}

func (c *SQLiteCache) refreshGauge(ctx context.Context) {
	n, err := c.Count(ctx)
	if err != nil {
		c.log.Warn(ctx, "bucket count failed", logger.Error(err))
		return
	}
	metrics.UpdateCacheBuckets(n)
}

// Close closes the database. It waits for in-flight operations.
func (c *SQLiteCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
