package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot under a single Redis key so several service
// instances can share one board.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store on the given client and key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load reads the snapshot. A missing key is an empty board.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", s.key, err)
	}
	return snapshot, nil
}

// Save overwrites the snapshot key.
func (s *RedisStore) Save(ctx context.Context, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
