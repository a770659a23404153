package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"siren/internal/registry/models"
)

const defaultRedisKey = "siren:registry:token"

// RedisStore shares the token between instances. The key expires with the token.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore stores the token under key, or a default key when empty.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context) (models.BearerToken, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.BearerToken{}, false, nil
	}
	if err != nil {
		return models.BearerToken{}, false, fmt.Errorf("get registry token: %w", err)
	}
	var token models.BearerToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return models.BearerToken{}, false, fmt.Errorf("decode registry token: %w", err)
	}
	return token, true, nil
}

// Set writes token with a TTL matching its remaining lifetime. An already
// expired token is not written.
func (s *RedisStore) Set(ctx context.Context, token models.BearerToken) error {
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode registry token: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set registry token: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear registry token: %w", err)
	}
	return nil
}
