package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no cart backend is configured.
var ErrUnavailable = errors.New("cart store unavailable")

// Store persists carts by session id.
type Store interface {
	Load(ctx context.Context, session string) (CartState, error)
	Save(ctx context.Context, session string, c CartState) error
	Delete(ctx context.Context, session string) error
	// Take atomically removes and returns the cart, so only one caller
	// can check it out.
	Take(ctx context.Context, session string) (CartState, error)
}

// RedisStore keeps each cart as JSON under "<prefix>:<session>".  Every
// save refreshes the expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store on client.  A nil client yields a store
// whose operations fail with ErrUnavailable.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "cart"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key of a session's cart.
func (s *RedisStore) Key(session string) string { return s.prefix + ":" + session }

// Load returns the stored cart, or an empty one when none exists.
func (s *RedisStore) Load(ctx context.Context, session string) (CartState, error) {
	if s.client == nil {
		return CartState{}, ErrUnavailable
	}
	raw, err := s.client.Get(ctx, s.Key(session)).Bytes()
	return decodeCart(raw, err, "load")
}

// Take reads and deletes the cart in one GETDEL.
func (s *RedisStore) Take(ctx context.Context, session string) (CartState, error) {
	if s.client == nil {
		return CartState{}, ErrUnavailable
	}
	raw, err := s.client.GetDel(ctx, s.Key(session)).Bytes()
	return decodeCart(raw, err, "take")
}

func decodeCart(raw []byte, err error, op string) (CartState, error) {
	var c CartState
	if errors.Is(err, redis.Nil) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("%s cart: %w", op, err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		// corrupt entries read as an empty cart
		return CartState{}, nil
	}
	return c, nil
}

// Save writes the cart with a fresh TTL.  An empty cart deletes the key.
func (s *RedisStore) Save(ctx context.Context, session string, c CartState) error {
	if s.client == nil {
		return ErrUnavailable
	}
	if c.Empty() && c.PartySize == 0 {
		return s.Delete(ctx, session)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(session), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the cart.
func (s *RedisStore) Delete(ctx context.Context, session string) error {
	if s.client == nil {
		return ErrUnavailable
	}
	if err := s.client.Del(ctx, s.Key(session)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
