package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/booklytics/bookscraper/internal/models"
)

// KeyFor derives the cache key from the crawl inputs: base URL, page
// count and whatever configuration parts change the result. The core
// never touches the cache; the host consults it before a run.
func KeyFor(baseURL string, pages int, configParts ...string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", baseURL, pages, strings.Join(configParts, "|"))
	return "bookscraper:run:" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Store is the slice of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache stores crawl results in Redis with a TTL.
type Cache struct {
	client Store
	ttl    time.Duration
	logger *slog.Logger
}

func New(client Store, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}
}

// Get returns the cached result for key, with ok=false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*models.CrawlResult, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var result models.CrawlResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry behaves like a miss; the next Set heals it.
		c.logger.Warn("dropping unreadable cache entry", "key", key, "error", err)
		return nil, false, nil
	}
	return &result, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, result *models.CrawlResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
