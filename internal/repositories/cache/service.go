// Package cache implements the per-account balance cache and distributed lock
// on top of Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Default timings.
const (
	DefaultBalanceTTL   = 7 * 24 * time.Hour
	DefaultLockTTL      = 30 * time.Second
	DefaultLockWait     = time.Second
	DefaultPollInterval = 50 * time.Millisecond
)

type Options struct {
	BalanceTTL time.Duration
	LockTTL    time.Duration
	LockWait   time.Duration
	// PollInterval is the pause between lock acquisition attempts.
	PollInterval time.Duration
}

type CacheService struct {
	client  *redis.Client
	options Options
}

func NewCacheService(client *redis.Client, opts Options) *CacheService {
	if client == nil {
		panic("redis client is required")
	}
	if opts.BalanceTTL <= 0 {
		opts.BalanceTTL = DefaultBalanceTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.LockWait <= 0 {
		opts.LockWait = DefaultLockWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	return &CacheService{
		client:  client,
		options: opts,
	}
}

// GetCachedBalance returns the cached balance stored under key. The boolean is
// false when nothing is cached or the entry expired.
func (s *CacheService) GetCachedBalance(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get cached balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cached balance %q: %w", raw, err)
	}
	return balance, true, nil
}

// PutCachedBalance overwrites the cached balance and resets its TTL.
func (s *CacheService) PutCachedBalance(ctx context.Context, key string, balance decimal.Decimal) error {
	if err := s.client.Set(ctx, key, balance.String(), s.options.BalanceTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// ForgetBalance drops the cached balance.
func (s *CacheService) ForgetBalance(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
