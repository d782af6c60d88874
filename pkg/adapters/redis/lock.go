package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/studio/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockAcquire is returned when the lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// ErrLockLost is returned by Renew when the lock expired or changed owner.
var ErrLockLost = errors.New("distributed lock lost")

const unlockScript = `
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

// Locker implements ports.Locker using Redis SET NX PX.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration
}

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		retry:  100 * time.Millisecond,
	}
}

// Lock polls until the key is free or ctx is done. The returned UnlockFunc only
// releases the lock if it is still held by this caller.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lease, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return lease.Release, nil
}

// Lease is a held lock. It stays held while Renew succeeds within each ttl.
type Lease struct {
	client *backend.Client
	key    string
	token  string
}

// Acquire polls until the key is free or ctx is done and returns the lease.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return &Lease{client: l.client, key: lockKey, token: token}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockAcquire, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Renew resets the lease expiry to ttl. It returns ErrLockLost when the key
// expired or is held by another owner.
func (le *Lease) Renew(ctx context.Context, ttl time.Duration) error {
	n, err := le.client.Eval(ctx, renewScript, []string{le.key}, le.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis error renewing lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, le.key)
	}
	return nil
}

// Release deletes the key if this lease still owns it.
func (le *Lease) Release(ctx context.Context) error {
	return le.client.Eval(ctx, unlockScript, []string{le.key}, le.token).Err()
}
