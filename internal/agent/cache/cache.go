// Package cache is a TTL key/value layer over the cache_entries table, used
// to memoize API responses. Expiry is lazy: Get treats an expired row as
// absent even before ClearExpired has swept it. Never used for data whose
// loss would violate a Case or FormSubmission invariant.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/dbx"
	"github.com/verifield/fieldsync/internal/timex"
)

type Cache struct {
	db dbx.DBTX

	// now is a test seam.
	now func() int64
}

func New(db dbx.DBTX) *Cache {
	return &Cache{db: db, now: timex.NowMillis}
}

// Set stores value under key with an absolute expiry of now+ttl, replacing
// any previous entry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	e := &models.CacheEntry{Key: key, Value: value, CreatedAt: now, ExpiresAt: now + ttl.Milliseconds()}

	query := ` INSERT INTO cache_entries (key, value, created_at, expires_at)
			values (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value,
				created_at = excluded.created_at,
				expires_at = excluded.expires_at
	`
	_, err := c.db.ExecContext(ctx, query, e.Key, e.Value, e.CreatedAt, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Get returns the value for key, or common.ErrNotFound once the entry has
// expired, even if the row still physically exists.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	query := `select value from cache_entries where key=? and expires_at > ?`
	var value []byte
	err := c.db.QueryRowContext(ctx, query, key, c.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return value, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `delete from cache_entries where key=?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// ClearExpired removes rows past their expiry to keep storage bounded.
// Correctness never depends on it running.
func (c *Cache) ClearExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `delete from cache_entries where expires_at <= ?`, c.now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache entries: %w", err)
	}
	return res.RowsAffected()
}
