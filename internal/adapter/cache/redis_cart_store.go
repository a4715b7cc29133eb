package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// cartLine is the JSON stored in each hash field.
type cartLine struct {
	domain.CartItem
	AddedAt int64 `json:"added_at"`
}

// RedisCartStore keeps each session's cart in one hash, field per item id.
// Every write slides the expiry forward.
type RedisCartStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisCartStore(rdb *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func cartKey(sessionID string) string { return "cart:" + sessionID }

// Add merges into an existing line by summing quantities; the line keeps the
// name and price it was first added with. A merge that would push the line
// past domain.MaxQuantity is rejected and leaves the line unchanged.
func (s *RedisCartStore) Add(ctx context.Context, sessionID string, item domain.CartItem) error {
	return s.update(ctx, sessionID, item.ID, func(cur *cartLine) (*cartLine, error) {
		if cur == nil {
			return &cartLine{CartItem: item, AddedAt: s.now().UnixNano()}, nil
		}
		cur.Quantity += item.Quantity
		if err := cur.Validate(); err != nil {
			return nil, errors.Join(usecase.ErrValidation, err)
		}
		return cur, nil
	})
}

func (s *RedisCartStore) SetQuantity(ctx context.Context, sessionID, itemID string, qty int) error {
	return s.update(ctx, sessionID, itemID, func(cur *cartLine) (*cartLine, error) {
		if cur == nil {
			return nil, fmt.Errorf("%w: cart item %s", usecase.ErrNotFound, itemID)
		}
		cur.Quantity = qty
		if err := cur.Validate(); err != nil {
			return nil, errors.Join(usecase.ErrValidation, err)
		}
		return cur, nil
	})
}

func (s *RedisCartStore) Remove(ctx context.Context, sessionID, itemID string) error {
	key := cartKey(sessionID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, key, itemID)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Get returns the lines in the order they were first added.
func (s *RedisCartStore) Get(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	key := cartKey(sessionID)
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	lines := make([]cartLine, 0, len(raw))
	for field, v := range raw {
		var l cartLine
		if err := json.Unmarshal([]byte(v), &l); err != nil {
			return nil, fmt.Errorf("decode cart line %s: %w", field, err)
		}
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AddedAt != lines[j].AddedAt {
			return lines[i].AddedAt < lines[j].AddedAt
		}
		return lines[i].ID < lines[j].ID
	})

	s.rdb.Expire(ctx, key, s.ttl)
	out := make([]domain.CartItem, len(lines))
	for i, l := range lines {
		out[i] = l.CartItem
	}
	return out, nil
}

// Replace swaps the whole cart atomically. Line order follows items.
func (s *RedisCartStore) Replace(ctx context.Context, sessionID string, items []domain.CartItem) error {
	key := cartKey(sessionID)
	base := s.now().UnixNano()
	fields := make([]any, 0, 2*len(items))
	for i, it := range items {
		b, err := json.Marshal(cartLine{CartItem: it, AddedAt: base + int64(i)})
		if err != nil {
			return err
		}
		fields = append(fields, it.ID, b)
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(fields) > 0 {
			p.HSet(ctx, key, fields...)
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisCartStore) Clear(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, cartKey(sessionID)).Err()
}

// update runs an optimistic read-modify-write of one line under WATCH.
func (s *RedisCartStore) update(ctx context.Context, sessionID, itemID string, fn func(*cartLine) (*cartLine, error)) error {
	key := cartKey(sessionID)
	txf := func(tx *redis.Tx) error {
		var cur *cartLine
		v, err := tx.HGet(ctx, key, itemID).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			cur = &cartLine{}
			if err := json.Unmarshal([]byte(v), cur); err != nil {
				return fmt.Errorf("decode cart line %s: %w", itemID, err)
			}
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		b, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, itemID, b)
			p.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("cart %s: too much contention", sessionID)
}

var _ usecase.CartStore = (*RedisCartStore)(nil)
