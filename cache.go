package rendition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/redis/go-redis/v9"
	"github.com/spaolacci/murmur3"
)

var ErrCacheMiss = errors.New(`cache miss`)
var DefaultCacheTTL = time.Minute
var DefaultCacheMaxEntries = 1024
var CacheKeyPrefix = `rendition:`

// A CachedResponse is a rendered response stored by a ResponseCache.
type CachedResponse struct {
	StatusCode  int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
}

// A ResponseCache stores rendered responses by key.  Get returns ErrCacheMiss for
// absent or expired entries.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error
	Close() error
}

// Return a cache key for the given request method and URL.
func CacheKey(method string, url string) string {
	return CacheKeyPrefix + strconv.FormatUint(murmur3.Sum64([]byte(method+` `+url)), 36)
}

type CacheConfig struct {
	Type       string        `yaml:"type"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Address    string        `yaml:"address"`
	Path       string        `yaml:"path"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
}

// Build the cache described by this configuration.  An empty type disables caching.
func (self CacheConfig) NewCache() (ResponseCache, error) {
	switch self.Type {
	case ``, `none`:
		return nil, nil
	case `memory`:
		return NewMemoryCache(self.MaxEntries, self.TTL), nil
	case `redis`:
		return NewRedisCache(self)
	case `sqlite`:
		return NewSQLiteCache(self)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", self.Type)
	}
}

type memoryCacheEntry struct {
	response  *CachedResponse
	expiresAt time.Time
	createdAt time.Time
}

// MemoryCache is an in-process ResponseCache that evicts the oldest entry when full.
type MemoryCache struct {
	maxEntries int
	ttl        time.Duration
	entries    map[string]*memoryCacheEntry
	lock       sync.Mutex
}

func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &MemoryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*memoryCacheEntry),
	}
}

func (self *MemoryCache) Get(_ context.Context, key string) (*CachedResponse, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if entry, ok := self.entries[key]; ok {
		if time.Now().Before(entry.expiresAt) {
			return entry.response, nil
		}

		delete(self.entries, key)
	}

	return nil, ErrCacheMiss
}

func (self *MemoryCache) Set(_ context.Context, key string, response *CachedResponse, ttl time.Duration) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	if ttl <= 0 {
		ttl = self.ttl
	}

	if _, ok := self.entries[key]; !ok && len(self.entries) >= self.maxEntries {
		self.evictOldest()
	}

	var now = time.Now()

	self.entries[key] = &memoryCacheEntry{
		response:  response,
		expiresAt: now.Add(ttl),
		createdAt: now,
	}

	return nil
}

func (self *MemoryCache) Len() int {
	self.lock.Lock()
	defer self.lock.Unlock()

	return len(self.entries)
}

func (self *MemoryCache) Close() error {
	self.lock.Lock()
	defer self.lock.Unlock()

	self.entries = make(map[string]*memoryCacheEntry)
	return nil
}

func (self *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range self.entries {
		if oldestKey == `` || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}

	if oldestKey != `` {
		delete(self.entries, oldestKey)
	}
}

// RedisCache stores responses in Redis as JSON.
type RedisCache struct {
	ttl    time.Duration
	client *redis.Client
}

func NewRedisCache(config CacheConfig) (*RedisCache, error) {
	var client = redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	var ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Debugf("cache: connected to redis at %s (db %d)", config.Address, config.DB)

	return NewRedisCacheFromClient(client, config.TTL), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &RedisCache{
		ttl:    ttl,
		client: client,
	}
}

func (self *RedisCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	if data, err := self.client.Get(ctx, key).Bytes(); err == nil {
		var response CachedResponse

		if err := json.Unmarshal(data, &response); err != nil {
			return nil, err
		}

		return &response, nil
	} else if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
}

func (self *RedisCache) Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = self.ttl
	}

	if data, err := json.Marshal(response); err == nil {
		if err := self.client.Set(ctx, key, data, ttl).Err(); err != nil {
			return fmt.Errorf("redis set error: %w", err)
		}

		return nil
	} else {
		return err
	}
}

func (self *RedisCache) Close() error {
	return self.client.Close()
}
