// Package cache stores public read responses behind generation counters.
// Writers bump a namespace generation instead of deleting keys, so stale
// entries simply stop being addressed and age out by TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	NamespaceArticles = "articles"
	NamespaceModules  = "modules"
)

// Cache is the storage behind Remember
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context, namespace string) (int64, error)
	Bump(ctx context.Context, namespace string) error
	Close() error
}

// Redis is a Cache backed by go-redis
type Redis struct {
	rdb *redis.Client
}

// Connect creates a Redis client and verifies connectivity
func Connect(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// Get reads key; a missing key is a miss, not an error
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value under key for ttl
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Generation returns the current generation of namespace, zero if never bumped
func (c *Redis) Generation(ctx context.Context, namespace string) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(namespace)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Bump increments the namespace generation
func (c *Redis) Bump(ctx context.Context, namespace string) error {
	return c.rdb.Incr(ctx, genKey(namespace)).Err()
}

// Close releases the client
func (c *Redis) Close() error {
	return c.rdb.Close()
}

// Ping reports whether Redis is reachable
func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Generation(context.Context, string) (int64, error)        { return 0, nil }
func (Nop) Bump(context.Context, string) error                       { return nil }
func (Nop) Close() error                                             { return nil }

// Memory is an in-process Cache used by tests and single-node development
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	gens    map[string]int64
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemory creates an empty in-process cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]int64),
		now:     time.Now,
	}
}

// Get reads key, treating expired entries as misses
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || (!e.expires.IsZero() && !m.now().Before(e.expires)) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl; a zero ttl never expires
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Generation returns the current generation of namespace
func (m *Memory) Generation(_ context.Context, namespace string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[namespace], nil
}

// Bump increments the namespace generation
func (m *Memory) Bump(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[namespace]++
	return nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }

func genKey(namespace string) string {
	return namespace + ":gen"
}

// Key builds the entry key of parts under the namespace generation
func Key(namespace string, gen int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", namespace, gen, strings.Join(parts, ":"))
}

// Remember returns the cached value of parts or loads and stores it.
// Cache failures never fail the read; they degrade to a load.
func Remember[T any](ctx context.Context, c Cache, namespace string, ttl time.Duration, load func() (T, error), parts ...string) (T, bool, error) {
	gen, err := c.Generation(ctx, namespace)
	if err != nil {
		v, err := load()
		return v, false, err
	}
	key := Key(namespace, gen, parts...)

	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, false, err
	}
	if raw, err := json.Marshal(v); err == nil {
		_ = c.Set(ctx, key, raw, ttl)
	}
	return v, false, nil
}
