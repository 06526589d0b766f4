package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Lock errors.
var (
	ErrLockTimeout = errors.New("cache lock acquisition timeout")
	ErrLockNotHeld = errors.New("cache lock not held")
)

// releaseScript deletes the lock only if it still carries our token, so a
// holder whose TTL lapsed cannot release someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Mutex is a held advisory lock.
type Mutex struct {
	client *Client
	key    string
	token  string
}

// Key returns the redis key backing the lock.
func (m *Mutex) Key() string {
	return m.key
}

// LockKey derives the advisory lock key for a data key.
func LockKey(key string) string {
	return key + ":lock"
}

// Lock acquires the advisory lock for key, polling until timeout elapses.
func (c *Client) Lock(ctx context.Context, key string, timeout time.Duration) (*Mutex, error) {
	m := &Mutex{client: c, key: LockKey(key), token: uuid.NewString()}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(c.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := c.rdb.SetNX(ctx, m.key, m.token, c.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", m.key, err)
		}
		if ok {
			return m, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock. Returns ErrLockNotHeld if it expired or was
// taken over in the meantime.
func (m *Mutex) Unlock(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, m.client.rdb, []string{m.key}, m.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", m.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock runs fn while holding the advisory lock for key, using the
// client's default timeout. The lock is released on every exit path,
// including a panic in fn.
func (c *Client) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	m, err := c.Lock(ctx, key, c.opts.Timeout)
	if err != nil {
		return err
	}
	defer func() {
		// Release with a fresh context so a cancelled caller still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := m.Unlock(releaseCtx); err != nil {
			log.Warn().Err(err).Str("key", m.key).Msg("Failed to release cache lock")
		}
	}()

	return fn(ctx)
}
