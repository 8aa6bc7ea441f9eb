package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestRedisLocker(t *testing.T, wait time.Duration) *RedisLocker {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := NewRedisClient(context.Background(), url)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, time.Second, wait, zerolog.Nop())
}

func TestRedisLockerExclusive(t *testing.T) {
	locker := newTestRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	release, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := locker.Lock(ctx, key); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("second Lock: got %v, want ErrLockTimeout", err)
	}
	release()

	again, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}

func TestRedisLockerExpires(t *testing.T) {
	locker := newTestRedisLocker(t, 2*time.Second)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	if _, err := locker.Lock(ctx, key); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	// never released; the ttl must free it
	release, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after ttl: %v", err)
	}
	release()
}
