package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "http:idempotency:"

// RedisIdempotencyStore shares idempotency records between API replicas
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStoreWithClient uses a client owned by the caller
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (*IdempotencyRecord, bool, error) {
	data, err := json.Marshal(IdempotencyRecord{RequestHash: requestHash})
	if err != nil {
		return nil, false, err
	}

	reserved, err := s.client.SetNX(ctx, s.keyPrefix+key, data, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if reserved {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; treat as a fresh reservation attempt.
		return s.Begin(ctx, key, requestHash, ttl)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	return &rec, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, record IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, s.keyPrefix+key, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	if !ok {
		return ErrIdempotencyKeyNotFound
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}

// Close is a no-op; the client belongs to the caller
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
