package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix  = "settlement_lock:"
	DefaultLockTTL = 10 * time.Minute
)

// ErrSettlementInFlight is returned when the user already has a settlement running.
var ErrSettlementInFlight = errors.New("a settlement is already in progress for this session")

// Guard admits at most one in-flight settlement per user. Acquire returns a
// release func that must be called when the attempt ends.
type Guard interface {
	Acquire(ctx context.Context, userId string) (release func(), err error)
}

// RedisGuard holds the lock in Redis so it spans service instances. The TTL
// bounds how long a crashed holder can block the user.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (g *RedisGuard) buildKey(userId string) string {
	return lockKeyPrefix + userId
}

func (g *RedisGuard) Acquire(ctx context.Context, userId string) (func(), error) {
	key := g.buildKey(userId)
	token := uuid.New().String()

	acquired, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire settlement lock: %w", err)
	}
	if !acquired {
		return nil, ErrSettlementInFlight
	}

	release := func() {
		// release must succeed even if the caller's context was cancelled
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.client, []string{key}, token).Err(); err != nil {
			zap.L().Warn("Failed to release settlement lock", zap.String("user_id", userId), zap.Error(err))
		}
	}
	return release, nil
}

// MemoryGuard is the single-process guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, userId string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[userId]; busy {
		return nil, ErrSettlementInFlight
	}
	g.inFlight[userId] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, userId)
			g.mu.Unlock()
		})
	}, nil
}
