package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/BotCoder254/projects254/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCheckoutStore holds pending checkouts and recorded callbacks until
// they are no longer useful to a poll.
type RedisCheckoutStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCheckoutStore(rdb *redis.Client, ttl time.Duration) *RedisCheckoutStore {
	return &RedisCheckoutStore{rdb: rdb, ttl: ttl}
}

func (s *RedisCheckoutStore) SavePending(ctx context.Context, p usecase.PendingCheckout) error {
	return s.put(ctx, "checkout:pending:"+p.CheckoutReference, p)
}

func (s *RedisCheckoutStore) GetPending(ctx context.Context, ref string) (*usecase.PendingCheckout, error) {
	var p usecase.PendingCheckout
	if err := s.get(ctx, "checkout:pending:"+ref, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisCheckoutStore) SaveCallback(ctx context.Context, cb usecase.CallbackResult) error {
	return s.put(ctx, "checkout:callback:"+cb.CheckoutReference, cb)
}

func (s *RedisCheckoutStore) GetCallback(ctx context.Context, ref string) (*usecase.CallbackResult, error) {
	var cb usecase.CallbackResult
	if err := s.get(ctx, "checkout:callback:"+ref, &cb); err != nil {
		return nil, err
	}
	return &cb, nil
}

func (s *RedisCheckoutStore) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

func (s *RedisCheckoutStore) get(ctx context.Context, key string, v any) error {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return usecase.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

var _ usecase.CheckoutStore = (*RedisCheckoutStore)(nil)
