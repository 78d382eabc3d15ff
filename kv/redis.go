package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

const (
	defaultAttempts  = 3
	defaultScanCount = 1000
)

// RedisConfig tunes a Redis store.
type RedisConfig struct {
	// Attempts bounds the tries per call, including the first one.
	Attempts int
	// ScanCount is the COUNT hint passed to SCAN.
	ScanCount int64
	Logger    logr.Logger
}

// Redis is a Store over go-redis that rebuilds its client after a failed
// round trip.
type Redis struct {
	newClient func() redis.UniversalClient
	attempts  int
	scanCount int64
	log       logr.Logger

	mu     sync.RWMutex
	client redis.UniversalClient
}

var _ Store = (*Redis)(nil)

// NewRedis builds the first client from newClient and keeps the factory to
// replace it after connection failures.
func NewRedis(newClient func() redis.UniversalClient, cfg RedisConfig) *Redis {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	scanCount := cfg.ScanCount
	if scanCount <= 0 {
		scanCount = defaultScanCount
	}
	return &Redis{
		newClient: newClient,
		attempts:  attempts,
		scanCount: scanCount,
		log:       cfg.Logger,
		client:    newClient(),
	}
}

// NewRedisFromOptions is NewRedis with a factory built from universal options.
func NewRedisFromOptions(opts *redis.UniversalOptions, cfg RedisConfig) *Redis {
	return NewRedis(func() redis.UniversalClient {
		return redis.NewUniversalClient(opts)
	}, cfg)
}

func (r *Redis) current() redis.UniversalClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

// reset swaps failed for a new client unless another caller already did.
// The factory runs outside the lock.
func (r *Redis) reset(failed redis.UniversalClient) {
	if r.current() != failed {
		return
	}
	fresh := r.newClient()

	r.mu.Lock()
	if r.client != failed {
		r.mu.Unlock()
		_ = fresh.Close()
		return
	}
	r.client = fresh
	r.mu.Unlock()

	if err := failed.Close(); err != nil {
		r.log.V(1).Info("closing replaced redis client", "error", err.Error())
	}
}

// do runs op until it succeeds, fails with a reply error, or the attempts
// are spent. redis.Nil is returned untouched.
func (r *Redis) do(ctx context.Context, op func(redis.UniversalClient) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		client := r.current()
		err := op(client)
		if err == nil || errors.Is(err, redis.Nil) {
			return err
		}
		var replyErr redis.Error
		if errors.As(err, &replyErr) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, ctxErr)
		}

		r.log.V(1).Info("redis call failed, replacing client", "attempt", attempt, "error", err.Error())
		r.reset(client)
	}
	return fmt.Errorf("%w: %d attempts: %v", ErrUnavailable, r.attempts, lastErr)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := r.do(ctx, func(c redis.UniversalClient) error {
		var err error
		data, err = c.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.do(ctx, func(c redis.UniversalClient) error {
		return c.Set(ctx, key, value, ttl).Err()
	})
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var ok bool
	err := r.do(ctx, func(c redis.UniversalClient) error {
		var err error
		ok, err = c.Expire(ctx, key, ttl).Result()
		return err
	})
	return ok, err
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.do(ctx, func(c redis.UniversalClient) error {
		return c.Del(ctx, keys...).Err()
	})
}

// Keys walks the keyspace with SCAN. It is O(n) and meant for admin paths.
// A cluster client is scanned on every master.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := prefixPattern(prefix)
	var out []string
	err := r.do(ctx, func(c redis.UniversalClient) error {
		out = out[:0]
		cluster, ok := c.(*redis.ClusterClient)
		if !ok {
			keys, err := r.scan(ctx, c, pattern)
			out = append(out, keys...)
			return err
		}

		var mu sync.Mutex
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			keys, err := r.scan(ctx, node, pattern)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, keys...)
			mu.Unlock()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) scan(ctx context.Context, c redis.Cmdable, pattern string) ([]string, error) {
	var out []string
	var cursor uint64
	for {
		keys, next, err := c.Scan(ctx, cursor, pattern, r.scanCount).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.do(ctx, func(c redis.UniversalClient) error {
		return c.Ping(ctx).Err()
	})
}

func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
