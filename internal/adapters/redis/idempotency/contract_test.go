//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/movement-pass/public-api/internal/adapters/contracttest"
	idempotencyport "github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

func newRedisClient(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis URL: %v", err)
	}
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	return client
}

func TestContract_RedisIdempotencyStore(t *testing.T) {
	client := newRedisClient(t)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(client), nil
	})
}

func TestStore_TTLApplied(t *testing.T) {
	client := newRedisClient(t)
	s := NewStore(client, WithTTL(time.Minute))

	fp := idempotencyport.Fingerprint{Key: "ttl", Applicant: "01712345678", Method: "POST", Route: "/v1/passes/"}
	if err := s.Put(context.Background(), fp, idempotencyport.Record{StatusCode: 201, Body: []byte("{}")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ttl, err := client.TTL(context.Background(), key(fp)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl=%v, want (0, 1m]", ttl)
	}
}
