//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"safeshift/internal/platform/config"
	platformredis "safeshift/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// Redis is a running container plus a client built the way the CLI builds
// its session store connection.
type Redis struct {
	container *tcredis.RedisContainer
	URL       string
	Client    *platformredis.Client
}

// StartRedis runs a container for the duration of t and connects to it.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	client, err := platformredis.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &Redis{container: container, URL: url, Client: client}
}

// Reset empties the database between tests.
func (r *Redis) Reset(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
