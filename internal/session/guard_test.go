package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "u1")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "u1")
	assert.ErrorIs(t, err, ErrSettlementInFlight)

	other, err := g.Acquire(ctx, "u2")
	require.NoError(t, err, "users do not block each other")
	other()

	release()
	release() // idempotent

	again, err := g.Acquire(ctx, "u1")
	require.NoError(t, err)
	again()
}

func TestMemoryGuard_Concurrent(t *testing.T) {
	g := NewMemoryGuard()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Acquire(context.Background(), "u1"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRedisGuard(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	g := NewRedisGuard(client, time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("settlement_lock:u1"))
	assert.Equal(t, time.Minute, mr.TTL("settlement_lock:u1"))

	_, err = g.Acquire(ctx, "u1")
	assert.ErrorIs(t, err, ErrSettlementInFlight)

	release()
	assert.False(t, mr.Exists("settlement_lock:u1"))

	again, err := g.Acquire(ctx, "u1")
	require.NoError(t, err)
	again()
}

func TestRedisGuard_ExpiredLockIsNotStolenOnRelease(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	g := NewRedisGuard(client, time.Minute)
	ctx := context.Background()

	staleRelease, err := g.Acquire(ctx, "u1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	freshRelease, err := g.Acquire(ctx, "u1")
	require.NoError(t, err)

	staleRelease()
	assert.True(t, mr.Exists("settlement_lock:u1"), "stale holder must not release the new lock")

	freshRelease()
	assert.False(t, mr.Exists("settlement_lock:u1"))
}

func TestRedisGuard_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err = NewRedisGuard(client, 0).Acquire(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSettlementInFlight)
}
