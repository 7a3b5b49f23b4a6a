package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockTimeout is returned when the lock could not be acquired within
	// the wait window.
	ErrLockTimeout = errors.New("timed out waiting for lock")
	ErrLockNotHeld = errors.New("lock is not held by this owner")
)

// releaseScript deletes the lock only when it still carries our token, so an
// expired lock taken over by another owner is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type heldLocksKey struct{}

// IsLocked reports whether a live lock exists for key without acquiring it.
func (s *CacheService) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	return n > 0, nil
}

// IsWithin reports whether ctx descends from a WithLock callback holding key.
func (s *CacheService) IsWithin(ctx context.Context, key string) bool {
	held, _ := ctx.Value(heldLocksKey{}).(map[string]struct{})
	_, ok := held[key]
	return ok
}

// WithLock runs fn while holding key, using the configured TTL and wait.
func (s *CacheService) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return s.WithLockFor(ctx, key, s.options.LockTTL, s.options.LockWait, fn)
}

// WithLockFor acquires key for at most maxWait and runs fn under it. The lock
// expires after ttl even if it is never released. fn receives a context marked
// as holding key; calling WithLock again with that context runs fn directly.
func (s *CacheService) WithLockFor(
	ctx context.Context,
	key string,
	ttl, maxWait time.Duration,
	fn func(ctx context.Context) error,
) error {
	if s.IsWithin(ctx, key) {
		return fn(ctx)
	}

	token, err := s.acquire(ctx, key, ttl, maxWait)
	if err != nil {
		return err
	}
	defer func() {
		// released even when ctx was cancelled while fn ran
		_ = s.release(context.WithoutCancel(ctx), key, token)
	}()

	return fn(markHeld(ctx, key))
}

func (s *CacheService) acquire(ctx context.Context, key string, ttl, maxWait time.Duration) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(maxWait)

	for {
		ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return token, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		wait := s.options.PollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *CacheService) release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func markHeld(ctx context.Context, key string) context.Context {
	prev, _ := ctx.Value(heldLocksKey{}).(map[string]struct{})
	next := make(map[string]struct{}, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return context.WithValue(ctx, heldLocksKey{}, next)
}
