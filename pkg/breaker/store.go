package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists circuit state.
type Store interface {
	State(ctx context.Context) (State, error)

	// IncrementFailures records a failure at now and returns the new count.
	IncrementFailures(ctx context.Context, now time.Time) (int, error)

	// Open marks the circuit open at the given time.
	Open(ctx context.Context, at time.Time) error

	// Reset clears failures and closes the circuit.
	Reset(ctx context.Context) error
}

// RedisStore keeps state in Redis under keys suffixed with the breaker name.
type RedisStore struct {
	redis *redis.Client
	name  string
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store. Keys expire after ttl of
// inactivity so abandoned breakers do not linger.
func NewRedisStore(redisClient *redis.Client, name string, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 10 * RecoveryTimeout
	}
	return &RedisStore{redis: redisClient, name: name, ttl: ttl}
}

// State implements Store.
func (s *RedisStore) State(ctx context.Context) (State, error) {
	var state State

	failures, err := s.redis.Get(ctx, RedisKeyFailures+s.name).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return state, fmt.Errorf("get failures: %w", err)
	}
	state.Failures = failures

	openedAt, err := s.redis.Get(ctx, RedisKeyOpenedAt+s.name).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return state, fmt.Errorf("get opened at: %w", err)
	}
	if openedAt > 0 {
		state.OpenedAt = time.UnixMilli(openedAt)
	}

	lastFailure, err := s.redis.Get(ctx, RedisKeyLastFailure+s.name).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return state, fmt.Errorf("get last failure: %w", err)
	}
	if lastFailure > 0 {
		state.LastFailure = time.UnixMilli(lastFailure)
	}

	return state, nil
}

// IncrementFailures implements Store.
func (s *RedisStore) IncrementFailures(ctx context.Context, now time.Time) (int, error) {
	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, RedisKeyFailures+s.name)
	pipe.Expire(ctx, RedisKeyFailures+s.name, s.ttl)
	pipe.Set(ctx, RedisKeyLastFailure+s.name, now.UnixMilli(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record failure in redis: %w", err)
	}
	return int(incr.Val()), nil
}

// Open implements Store.
func (s *RedisStore) Open(ctx context.Context, at time.Time) error {
	if err := s.redis.Set(ctx, RedisKeyOpenedAt+s.name, at.UnixMilli(), s.ttl).Err(); err != nil {
		return fmt.Errorf("open circuit in redis: %w", err)
	}
	return nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context) error {
	err := s.redis.Del(ctx,
		RedisKeyFailures+s.name,
		RedisKeyOpenedAt+s.name,
		RedisKeyLastFailure+s.name,
	).Err()
	if err != nil {
		return fmt.Errorf("reset circuit in redis: %w", err)
	}
	return nil
}

// MemoryStore keeps state in process.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// State implements Store.
func (s *MemoryStore) State(context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// IncrementFailures implements Store.
func (s *MemoryStore) IncrementFailures(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Failures++
	s.state.LastFailure = now
	return s.state.Failures, nil
}

// Open implements Store.
func (s *MemoryStore) Open(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OpenedAt = at
	return nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	return nil
}
