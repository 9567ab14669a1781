package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/cart"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, time.Hour), mr
}

func TestLoadMissingCart(t *testing.T) {
	s, _ := newStore(t)
	entries, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateStoresWithTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "s1", func(e []cart.Entry) ([]cart.Entry, error) {
		return append(e, cart.Entry{ProductID: "1", Quantity: 3}), nil
	})
	require.NoError(t, err)

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []cart.Entry{{ProductID: "1", Quantity: 3}}, got)
	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))

	_, err = s.Update(ctx, "s1", func([]cart.Entry) ([]cart.Entry, error) { return nil, nil })
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:s1"))
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, err := s.Update(ctx, "s1", func(e []cart.Entry) ([]cart.Entry, error) {
		return []cart.Entry{{ProductID: "1", Quantity: 1}}, nil
	})
	require.NoError(t, err)

	_, err = s.Update(ctx, "s1", func(e []cart.Entry) ([]cart.Entry, error) {
		return nil, cart.ErrItemNotInCart
	})
	assert.True(t, errors.Is(err, cart.ErrItemNotInCart))

	got, _ := s.Load(ctx, "s1")
	assert.Len(t, got, 1)
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	const workers, perWorker = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.Update(ctx, "shared", func(e []cart.Entry) ([]cart.Entry, error) {
					if len(e) == 0 {
						return []cart.Entry{{ProductID: "1", Quantity: 1}}, nil
					}
					e[0].Quantity++
					return e, nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Load(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, workers*perWorker, got[0].Quantity)
}

func TestCorruptCartIsReported(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, mr.Set("cart:bad", "not json"))
	_, err := s.Load(context.Background(), "bad")
	assert.ErrorContains(t, err, "decoding cart")
}
