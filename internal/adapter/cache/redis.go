// Package cache provides a Redis-backed cache for content search results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	searchPrefix = "chatbot:search:"
	defaultTTL   = 5 * time.Minute
)

// SearchCache stores retriever snippet lists in Redis.
type SearchCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSearchCache creates a cache on an existing client.
func NewSearchCache(rdb *redis.Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SearchCache{rdb: rdb, ttl: ttl}
}

// Connect opens a client for addr and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// GetSnippets returns the cached snippets for key.
func (c *SearchCache) GetSnippets(ctx context.Context, key string) ([]string, bool, error) {
	data, err := c.rdb.Get(ctx, searchPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load search results: %w", err)
	}

	var snippets []string
	if err := json.Unmarshal(data, &snippets); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal search results: %w", err)
	}
	return snippets, true, nil
}

// SetSnippets stores snippets for key with the configured TTL.
func (c *SearchCache) SetSnippets(ctx context.Context, key string, snippets []string) error {
	if snippets == nil {
		snippets = []string{}
	}
	data, err := json.Marshal(snippets)
	if err != nil {
		return fmt.Errorf("failed to marshal search results: %w", err)
	}
	if err := c.rdb.Set(ctx, searchPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save search results: %w", err)
	}
	return nil
}

// Invalidate drops every cached search, used after the content index changes.
func (c *SearchCache) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, searchPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}
