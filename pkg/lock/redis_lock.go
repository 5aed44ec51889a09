// Package lock provides a Redis-backed mutual exclusion lock shared by service replicas.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"labswarm/pkg/logger"
)

const (
	defaultTTL             = 30 * time.Second
	acquireTimeout         = 5 * time.Second
	defaultRenewInterval   = 10 * time.Second
	defaultMaxHoldDuration = 2 * time.Minute
)

const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// Locker distributed lock
type Locker interface {
	// TryLock acquires the lock without waiting for the current holder
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock if this instance still holds it
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance holds the lock
	IsHeld() bool
}

// RedisLock SET NX based lock with background renewal.
// A nil client means single-instance mode: TryLock always succeeds.
type RedisLock struct {
	client        *redis.Client
	key           string
	value         string // identifies this holder so it never releases another's lock
	ttl           time.Duration
	renewInterval time.Duration
	maxHold       time.Duration

	mu           sync.Mutex
	held         bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool
}

// Option customizes a RedisLock
type Option func(*RedisLock)

// WithTTL sets the key expiry and derives the renewal interval from it
func WithTTL(ttl time.Duration) Option {
	return func(l *RedisLock) {
		if ttl > 0 {
			l.ttl = ttl
			l.renewInterval = ttl / 3
		}
	}
}

// WithMaxHold bounds how long one acquisition keeps renewing
func WithMaxHold(d time.Duration) Option {
	return func(l *RedisLock) {
		if d > 0 {
			l.maxHold = d
		}
	}
}

// NewRedisLock creates a lock on key
func NewRedisLock(client *redis.Client, key string, opts ...Option) *RedisLock {
	l := &RedisLock{
		client:        client,
		key:           key,
		value:         fmt.Sprintf("%s-%s", key, uuid.NewString()),
		ttl:           defaultTTL,
		renewInterval: defaultRenewInterval,
		maxHold:       defaultMaxHoldDuration,
		stopRenew:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock implements Locker
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		l.mu.Lock()
		l.held = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !acquired {
		logger.DebugCtx(ctx, "lock %s held by another instance", l.key)
		return false, nil
	}

	l.mu.Lock()
	l.held = true
	l.acquiredAt = time.Now()
	// fresh channel per acquisition so TryLock/Unlock can cycle
	l.stopRenew = make(chan struct{})
	l.renewStopped = false
	stop := l.stopRenew
	l.mu.Unlock()

	go l.renew(ctx, stop)

	logger.DebugCtx(ctx, "lock %s acquired", l.key)
	return true, nil
}

// Unlock implements Locker
func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	wasHeld := l.held
	l.held = false
	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	if !wasHeld || l.client == nil {
		return nil
	}

	result, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if result == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.key)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or taken over", l.key)
	}
	return nil
}

// IsHeld implements Locker
func (l *RedisLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *RedisLock) renew(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(l.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			holdFor := time.Since(l.acquiredAt)
			l.mu.Unlock()

			// Stop renewing and let the key expire; Unlock is left to the holder
			if holdFor > l.maxHold {
				logger.WarnCtx(ctx, "lock %s held for %.0fs, no longer renewing", l.key, holdFor.Seconds())
				l.markLost()
				return
			}

			result, err := l.client.Eval(ctx, renewScript, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.key, err)
				l.markLost()
				return
			}
			if result == 0 {
				logger.WarnCtx(ctx, "lock %s lost before renewal", l.key)
				l.markLost()
				return
			}
		}
	}
}

func (l *RedisLock) markLost() {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
}
