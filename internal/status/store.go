package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// AnalyticsCacheKey holds the last analytics query, keyed by script name.
	AnalyticsCacheKey = "spritedash:analytics"
	// AnalyticsTTL is how long cached analytics are served.
	AnalyticsTTL = 300 * time.Second
)

// Store holds worker self-reports and the analytics cache. Missing keys are
// reported as nil values, not errors.
type Store interface {
	PutReport(ctx context.Context, key string, r Report) error
	Report(ctx context.Context, key string) (*Report, error)
	CachedAnalytics(ctx context.Context) (map[string]Analytics, error)
	CacheAnalytics(ctx context.Context, a map[string]Analytics, ttl time.Duration) error
}

// KVStore is a Redis-backed Store. Reports live at each worker's status key
// as JSON strings.
type KVStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewKVStore connects to Redis and verifies the connection.
func NewKVStore(redisURL string, logger *zap.Logger) (*KVStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &KVStore{rdb: rdb, logger: logger}, nil
}

// PutReport stores a worker's report.
func (s *KVStore) PutReport(ctx context.Context, key string, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("put report %s: %w", key, err)
	}
	s.logger.Debug("report stored", zap.String("key", key), zap.String("status", r.Status))
	return nil
}

// Report reads a worker's report.
func (s *KVStore) Report(ctx context.Context, key string) (*Report, error) {
	var r Report
	ok, err := s.getJSON(ctx, key, &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// CachedAnalytics returns the cached analytics, or nil once they expired.
func (s *KVStore) CachedAnalytics(ctx context.Context) (map[string]Analytics, error) {
	var a map[string]Analytics
	ok, err := s.getJSON(ctx, AnalyticsCacheKey, &a)
	if err != nil || !ok {
		return nil, err
	}
	return a, nil
}

// CacheAnalytics stores analytics for ttl.
func (s *KVStore) CacheAnalytics(ctx context.Context, a map[string]Analytics, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, AnalyticsCacheKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache analytics: %w", err)
	}
	return nil
}

func (s *KVStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Close shuts down the Redis connection.
func (s *KVStore) Close() error {
	return s.rdb.Close()
}

// MemoryStore is an in-process Store used when Redis is unavailable.
type MemoryStore struct {
	mu       sync.RWMutex
	reports  map[string]Report
	cached   map[string]Analytics
	expireAt time.Time
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]Report), now: time.Now}
}

func (m *MemoryStore) PutReport(_ context.Context, key string, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key] = r
	return nil
}

func (m *MemoryStore) Report(_ context.Context, key string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) CachedAnalytics(context.Context) (map[string]Analytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cached == nil || !m.now().Before(m.expireAt) {
		return nil, nil
	}
	out := make(map[string]Analytics, len(m.cached))
	for k, v := range m.cached {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) CacheAnalytics(_ context.Context, a map[string]Analytics, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = a
	m.expireAt = m.now().Add(ttl)
	return nil
}
