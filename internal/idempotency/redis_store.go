// internal/idempotency/redis_store.go
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records in Redis, shared by every API instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Reserve uses SETNX so exactly one caller creates the record.
func (s *RedisStore) Reserve(ctx context.Context, key string, rec Record, ttl time.Duration) (*Record, bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: failed to encode record: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: reserve %s: %w", key, err)
	}
	if ok {
		return nil, true, nil
	}
	existing, err := s.Get(ctx, key)
	return existing, false, err
}

// Get returns the record under key, or nil if absent.
func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: get %s: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("idempotency: decode %s: %w", key, err)
	}
	return &rec, nil
}

// Put overwrites the record under key.
func (s *RedisStore) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("idempotency: failed to encode record: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
