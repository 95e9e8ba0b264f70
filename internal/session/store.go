// Package session holds checkout-scoped key/value state. Payment session
// identifiers live here for the lifetime of a shopper's checkout and are
// never persisted beyond it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Keys stored per checkout.
const (
	KeySessionID   = "klarna_payments_session_id"
	KeyClientToken = "klarna_payments_client_token"
)

// Store is the checkout-scoped string store consumed by the session
// lifecycle manager. A missing key reads as the empty string.
//
// Concurrent requests for the same checkout may interleave writes; the last
// write wins. That race is tolerated: a lost session id is recreated on the
// next lifecycle call.
type Store interface {
	Get(ctx context.Context, checkoutID, key string) (string, error)
	Set(ctx context.Context, checkoutID, key, value string) error
	Unset(ctx context.Context, checkoutID, key string) error
}

const (
	// checkoutTTL bounds how long abandoned checkout state survives.
	checkoutTTL = 24 * time.Hour

	defaultOperationTimeout = 5 * time.Second
)

// RedisStore keeps checkout state in Redis so that any API instance can
// serve a shopper mid-checkout.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(checkoutID, key string) string {
	return "checkout:" + checkoutID + ":" + key
}

func (s *RedisStore) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, defaultOperationTimeout)
}

func (s *RedisStore) Get(ctx context.Context, checkoutID, key string) (string, error) {
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	value, err := s.client.Get(ctx, redisKey(checkoutID, key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session store get failed: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, checkoutID, key, value string) error {
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	if err := s.client.Set(ctx, redisKey(checkoutID, key), value, checkoutTTL).Err(); err != nil {
		return fmt.Errorf("session store set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Unset(ctx context.Context, checkoutID, key string) error {
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	if err := s.client.Del(ctx, redisKey(checkoutID, key)).Err(); err != nil {
		return fmt.Errorf("session store unset failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is the in-process fallback used when Redis is disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, checkoutID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[redisKey(checkoutID, key)], nil
}

func (s *MemoryStore) Set(ctx context.Context, checkoutID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[redisKey(checkoutID, key)] = value
	return nil
}

func (s *MemoryStore) Unset(ctx context.Context, checkoutID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, redisKey(checkoutID, key))
	return nil
}
