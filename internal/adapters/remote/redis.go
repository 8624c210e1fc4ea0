package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each account's ranking as one JSON value under
// prefix+accountID. Credentials are required but not verified: the Redis
// deployment is trusted.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisStore connects to addr/db and pings it.
func NewRedisStore(ctx context.Context, addr string, db int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	s := NewRedisStoreFromClient(client, opts...)
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis %s: %v", ErrUnavailable, addr, err)
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, prefix: o.keyPrefix, timeout: o.timeout}
}

func (s *RedisStore) key(accountID string) string { return s.prefix + accountID }

func (s *RedisStore) check(accountID, credential string) error {
	if accountID == "" {
		return ErrMissingAccount
	}
	if credential == "" {
		return ErrUnauthorized
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, accountID, credential string) (list model.List, err error) {
	start := time.Now()
	defer func() { observe("get", start, err) }()
	if err := s.check(accountID, credential); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.List{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: decode ranking: %v", ErrUnavailable, err)
	}
	return list.Normalize(), nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, accountID, credential string, list model.List) (err error) {
	start := time.Now()
	defer func() { observe("put", start, err) }()
	if err := s.check(accountID, credential); err != nil {
		return err
	}
	if list == nil {
		list = model.List{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(accountID), raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error { return s.client.Close() }
