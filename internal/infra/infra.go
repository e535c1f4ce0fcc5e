// Package infra provides shared infrastructure components used across
// the application: caching, request pacing, and HTTP utilities.
package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// --- Simple in-memory cache ---

// CacheEntry holds a cached value with expiration.
type CacheEntry struct {
	Value     any
	ExpiresAt time.Time
}

// Cache is a simple thread-safe in-memory cache with TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the given default TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a value from the cache. Returns nil, false if not found or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value in the cache with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = CacheEntry{
		Value:     value,
		ExpiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes a key from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Flush removes all entries from the cache.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry)
	c.mu.Unlock()
}

// --- Pacer ---

// Pacer spaces out external calls. The batch driver waits on it between
// company pipelines so provider request-rate ceilings are respected.
// Implementations must honor context cancellation.
type Pacer interface {
	Wait(ctx context.Context) error
}

// ratePacer paces via a token-bucket limiter.
type ratePacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer that allows one call per interval, with a
// burst of one. A zero or negative interval yields an unpaced Pacer.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NopPacer{}
	}
	return &ratePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *ratePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NopPacer never waits. Tests inject it to run pipelines without delays.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context) error { return ctx.Err() }

// --- HTTP utilities ---

// httpClient is the shared client for provider requests.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// DoGet performs a GET request with the given headers and returns the
// response body, status code, and error. The caller must close the body.
// Non-2xx statuses are returned as errors with the body drained.
func DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, resp.StatusCode, nil
}
