package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/anavasquez/restyle-backend/pkg/redis"
)

const defaultLockTTL = 30 * time.Second

// Lock serializes checkout per cart so two concurrent checkouts of the same
// cart cannot both produce an invoice.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Locker hands out per-cart locks.
type Locker interface {
	ForCart(cartID uuid.UUID) Lock
}

// redisStore defines the operations used by the redis-backed lock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker builds per-cart locks using Redis SETNX + TTL.
type RedisLocker struct {
	client redisStore
	ttl    time.Duration
}

// NewRedisLocker constructs a Redis-backed locker.
func NewRedisLocker(client redisStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for checkout locks")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

// ForCart returns the lock guarding the given cart.
func (l *RedisLocker) ForCart(cartID uuid.UUID) Lock {
	return &redisLock{
		client: l.client,
		key:    redis.LockKey("checkout", cartID.String()),
		ttl:    l.ttl,
	}
}

type redisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
}

// Acquire tries to own the lock for the configured TTL.
func (l *redisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *redisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
