// Package redisstore keeps carts in Redis so several API instances can share
// them. Each cart is a JSON array stored under "cart:<session>".
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coffeeshop/pkg/cart"
)

const keyPrefix = "cart:"

// ErrConflict is returned when an update kept losing the optimistic race.
var ErrConflict = errors.New("cart update conflict")

// Store implements cart.Store on Redis. Updates to one session are
// serialized with WATCH/MULTI and retried on conflict.
type Store struct {
	client     redis.UniversalClient
	ttl        time.Duration
	maxRetries int
}

// New returns a Store whose carts expire ttl after their last write.
// A ttl of zero keeps carts forever.
func New(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, maxRetries: 100}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *Store) Load(ctx context.Context, sessionID string) ([]cart.Entry, error) {
	return load(ctx, s.client, key(sessionID))
}

func (s *Store) Update(ctx context.Context, sessionID string, fn func([]cart.Entry) ([]cart.Entry, error)) ([]cart.Entry, error) {
	k := key(sessionID)
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var out []cart.Entry
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			entries, err := load(ctx, tx, k)
			if err != nil {
				return err
			}
			next, err := fn(entries)
			if err != nil {
				return err
			}
			body, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("encoding cart: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(next) == 0 {
					pipe.Del(ctx, k)
					return nil
				}
				pipe.Set(ctx, k, body, s.ttl)
				return nil
			})
			out = next
			return err
		}, k)

		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, redis.TxFailedErr):
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: session %s", ErrConflict, sessionID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, k string) ([]cart.Entry, error) {
	body, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}
	var entries []cart.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	return entries, nil
}

func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt%10) * time.Millisecond
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
