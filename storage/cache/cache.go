// Package cache implements the local workspace mirror on memory, SQLite and Redis.
package cache

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/workspace"
)

var (
	_ workspace.Cache = (*MemoryCache)(nil)
	_ workspace.Cache = (*SQLiteCache)(nil)
	_ workspace.Cache = (*RedisCache)(nil)
)

// New opens the cache backend selected in conf.
func New(ctx context.Context, conf *core.Config) (workspace.Cache, error) {
	switch conf.Cache.Backend {
	case core.BackendSQLite:
		db, err := sql.Open("sqlite", conf.Cache.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "opening sqlite cache")
		}
		return NewSQLiteCache(ctx, db)
	case core.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Cache.RedisAddr,
			Password: conf.Cache.RedisPassword,
			DB:       conf.Cache.RedisDB,
		})
		return NewRedisCache(client), nil
	case "", core.BackendMemory:
		return NewMemoryCache(), nil
	}
	return nil, errors.Errorf("unknown cache backend %q", conf.Cache.Backend)
}

type MemoryCache struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

// SQLiteCache keeps the mirror in a single key/value table.
type SQLiteCache struct {
	db *sql.DB
}

func NewSQLiteCache(ctx context.Context, db *sql.DB) (*SQLiteCache, error) {
	q := `CREATE TABLE IF NOT EXISTS workspace_cache (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return nil, errors.Wrap(err, "creating cache table")
	}
	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM workspace_cache WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading cache")
	}
	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key, value string) error {
	q := `INSERT INTO workspace_cache (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := c.db.ExecContext(ctx, q, key, value); err != nil {
		return errors.Wrap(err, "writing cache")
	}
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM workspace_cache WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "deleting cache entry")
	}
	return nil
}

func (c *SQLiteCache) Close() error { return c.db.Close() }

// RedisCache keeps the mirror as plain string keys without expiry.
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading cache")
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "writing cache")
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "deleting cache entry")
	}
	return nil
}

func (c *RedisCache) Close() error { return c.client.Close() }
