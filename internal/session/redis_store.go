package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func NewRedisTokenStore(client *redis.Client, key string) *RedisTokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	return &RedisTokenStore{
		client: client,
		key:    key,
	}
}

// RedisTokenStore persists the credential as a single string key without
// expiry; the remote authority decides when a token stops being valid.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

func (r RedisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (r RedisTokenStore) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisTokenStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
