// Package dedupe drops Telegram updates that were already delivered.
// Telegram redelivers a webhook update until it gets a 2xx response, so a
// slow reply could otherwise record the same /add twice.
package dedupe

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "betlog:update:"

// Filter remembers update ids.
type Filter interface {
	// First reports whether id is seen for the first time and marks it seen.
	First(ctx context.Context, id int) (bool, error)
	// Forget clears id so a redelivery is processed again.
	Forget(ctx context.Context, id int) error
}

// RedisFilter stores seen ids in Redis with a TTL.
type RedisFilter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFilter creates a new RedisFilter instance.
func NewRedisFilter(client *redis.Client, ttl time.Duration) *RedisFilter {
	return &RedisFilter{client: client, ttl: ttl}
}

// First marks id seen with SETNX.
func (f *RedisFilter) First(ctx context.Context, id int) (bool, error) {
	ok, err := f.client.SetNX(ctx, keyPrefix+strconv.Itoa(id), 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark update %d: %w", id, err)
	}
	return ok, nil
}

// Forget deletes the mark for id.
func (f *RedisFilter) Forget(ctx context.Context, id int) error {
	if err := f.client.Del(ctx, keyPrefix+strconv.Itoa(id)).Err(); err != nil {
		return fmt.Errorf("failed to forget update %d: %w", id, err)
	}
	return nil
}

// MemoryFilter keeps seen ids in process memory.
type MemoryFilter struct {
	mu   sync.Mutex
	seen map[int]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryFilter creates a new MemoryFilter instance.
func NewMemoryFilter(ttl time.Duration) *MemoryFilter {
	return &MemoryFilter{
		seen: make(map[int]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// First marks id seen unless an unexpired mark exists.
func (f *MemoryFilter) First(_ context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for k, exp := range f.seen {
		if now.After(exp) {
			delete(f.seen, k)
		}
	}

	if _, ok := f.seen[id]; ok {
		return false, nil
	}
	f.seen[id] = now.Add(f.ttl)
	return true, nil
}

// Forget deletes the mark for id.
func (f *MemoryFilter) Forget(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, id)
	return nil
}
