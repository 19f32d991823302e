package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisSlotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotStore creates a SlotStore backed by Redis. Every write refreshes
// the key expiry to ttl; a zero ttl keeps carts forever.
func NewRedisSlotStore(client *redis.Client, ttl time.Duration) SlotStore {
	return &redisSlotStore{client: client, ttl: ttl}
}

func (s *redisSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get cart slot: %w", err)
	}
	return data, nil
}

func (s *redisSlotStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put cart slot: %w", err)
	}
	return nil
}

func (s *redisSlotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cart slot: %w", err)
	}
	return nil
}
