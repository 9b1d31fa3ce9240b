package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"safeshift/internal/session"
	"safeshift/pkg/platform/sentinel"
)

const sessionKeyPrefix = "safeshift:session:"

// RedisStore shares a profile's session between processes and machines.
// The key expires with the token lifetime.
type RedisStore struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL sets the key expiry; zero keeps the key until deleted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedis(client *redis.Client, profile string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, profile: profile}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key() string {
	return sessionKeyPrefix + s.profile
}

func (s *RedisStore) Load(ctx context.Context) (*session.Record, error) {
	raw, err := s.client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var rec session.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w: %w", sentinel.ErrCorrupt, err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec session.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(), raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context) error {
	n, err := s.client.Del(ctx, s.key()).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
