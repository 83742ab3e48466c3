package storage

import (
	"context"
	"errors"
	"fmt"

	dom "Tasklist/internal/domain"

	"github.com/redis/go-redis/v9"
)

var _ Slot = (*RedisSlot)(nil)

// RedisSlot stores the snapshot as a JSON string under one Redis key, without TTL.
type RedisSlot struct {
	rdb *redis.Client
	key string
}

// NewRedisSlot returns a slot writing to key. An empty key means DefaultKey.
func NewRedisSlot(rdb *redis.Client, key string) *RedisSlot {
	if key == "" {
		key = DefaultKey
	}
	return &RedisSlot{rdb: rdb, key: key}
}

// Load returns the stored list, or an empty list on a miss.
func (s *RedisSlot) Load(ctx context.Context) ([]dom.Task, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []dom.Task{}, nil
	}
	if err != nil {
		return []dom.Task{}, fmt.Errorf("redis get: %w", err)
	}
	return Decode(b)
}

// Save overwrites the key with the full list.
func (s *RedisSlot) Save(ctx context.Context, tasks []dom.Task) error {
	b, err := Encode(tasks)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
