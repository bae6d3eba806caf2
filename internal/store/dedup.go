package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper is the atomic insert-if-absent guard keyed by event identity.
// PutIfAbsent returns true when the key was newly claimed, false when an
// earlier delivery already claimed it.
type Deduper interface {
	PutIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper claims keys with SETNX so concurrent deliveries of the same
// event race on a single atomic operation.
type RedisDeduper struct {
	client *redis.Client
}

// NewDeduper connects to redis at the given URL, falling back to the
// in-process deduper when redis is unreachable. The fallback loses
// cross-restart and cross-replica protection but keeps single-process
// replays deduplicated.
func NewDeduper(redisURL string) Deduper {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return NewMemoryDeduper()
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return NewMemoryDeduper()
	}
	return &RedisDeduper{client: client}
}

// PutIfAbsent implements Deduper.
func (r *RedisDeduper) PutIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, "dedup:"+key, 1, ttl).Result()
}

// MemoryDeduper is the single-process fallback.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryDeduper builds an empty in-process deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time)}
}

// PutIfAbsent implements Deduper.
func (m *MemoryDeduper) PutIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.sweep(now)
	if exp, ok := m.seen[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	exp := time.Time{}
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.seen[key] = exp
	return true, nil
}

// sweep drops expired claims so the map stays bounded by the live window.
// Caller holds the lock.
func (m *MemoryDeduper) sweep(now time.Time) {
	for key, exp := range m.seen {
		if !exp.IsZero() && !now.Before(exp) {
			delete(m.seen, key)
		}
	}
}
