package rendition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ghetzel/go-stockutil/log"
	_ "modernc.org/sqlite"
)

var DefaultSQLiteCachePath = `rendition-cache.db`

const sqliteCacheSchema = `CREATE TABLE IF NOT EXISTS responses (
	key          TEXT PRIMARY KEY,
	status       INTEGER NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	expires_at   INTEGER NOT NULL
)`

// SQLiteCache persists responses to a SQLite database so they survive restarts.
type SQLiteCache struct {
	ttl time.Duration
	db  *sql.DB
}

func NewSQLiteCache(config CacheConfig) (*SQLiteCache, error) {
	var path = config.Path

	if path == `` {
		path = DefaultSQLiteCachePath
	}

	db, err := sql.Open(`sqlite`, path)

	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite cache schema: %w", err)
	}

	log.Debugf("cache: using sqlite database at %s", path)

	var ttl = config.TTL

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &SQLiteCache{
		ttl: ttl,
		db:  db,
	}, nil
}

func (self *SQLiteCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	var response CachedResponse
	var expiresAt int64

	if err := self.db.QueryRowContext(
		ctx,
		`SELECT status, content_type, body, expires_at FROM responses WHERE key = ?`,
		key,
	).Scan(&response.StatusCode, &response.ContentType, &response.Body, &expiresAt); err == nil {
		if time.Now().UnixNano() < expiresAt {
			return &response, nil
		}

		if _, err := self.db.ExecContext(ctx, `DELETE FROM responses WHERE key = ?`, key); err != nil {
			return nil, fmt.Errorf("sqlite delete error: %w", err)
		}

		return nil, ErrCacheMiss
	} else if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	} else {
		return nil, fmt.Errorf("sqlite get error: %w", err)
	}
}

func (self *SQLiteCache) Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = self.ttl
	}

	if _, err := self.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO responses (key, status, content_type, body, expires_at) VALUES (?, ?, ?, ?, ?)`,
		key,
		response.StatusCode,
		response.ContentType,
		response.Body,
		time.Now().Add(ttl).UnixNano(),
	); err != nil {
		return fmt.Errorf("sqlite set error: %w", err)
	}

	return nil
}

func (self *SQLiteCache) Close() error {
	return self.db.Close()
}
