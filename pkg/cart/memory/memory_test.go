package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"coffeeshop/pkg/cart"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	entries, err := s.Load(ctx, "s1")
	if err != nil || len(entries) != 0 {
		t.Fatalf("load empty: %v len=%d", err, len(entries))
	}

	_, err = s.Update(ctx, "s1", func(e []cart.Entry) ([]cart.Entry, error) {
		return append(e, cart.Entry{ProductID: "1", Quantity: 2}), nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("unexpected entries: %+v", got)
	}

	got[0].Quantity = 99
	again, _ := s.Load(ctx, "s1")
	if again[0].Quantity != 2 {
		t.Fatalf("load leaked internal slice: %+v", again)
	}
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Update(ctx, "s1", func(e []cart.Entry) ([]cart.Entry, error) {
		return []cart.Entry{{ProductID: "1", Quantity: 1}}, nil
	})

	boom := errors.New("boom")
	_, err := s.Update(ctx, "s1", func(e []cart.Entry) ([]cart.Entry, error) {
		e[0].Quantity = 50
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Load(ctx, "s1")
	if got[0].Quantity != 1 {
		t.Fatalf("failed update was written: %+v", got)
	}
}

func TestUpdateSerializesPerSession(t *testing.T) {
	ctx := context.Background()
	s := New()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(ctx, "shared", func(e []cart.Entry) ([]cart.Entry, error) {
				if len(e) == 0 {
					return []cart.Entry{{ProductID: "1", Quantity: 1}}, nil
				}
				e[0].Quantity++
				return e, nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.Load(ctx, "shared")
	if got[0].Quantity != workers {
		t.Fatalf("expected %d, got %d", workers, got[0].Quantity)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"s1", "s2"} {
		if _, err := s.Update(ctx, id, func(e []cart.Entry) ([]cart.Entry, error) {
			return append(e, cart.Entry{ProductID: "1", Quantity: 1}), nil
		}); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}

	s.Delete(ctx, "s1")
	s.Delete(ctx, "missing")

	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if got, _ := s.Load(ctx, "s1"); len(got) != 0 {
		t.Fatalf("deleted cart still has %d entries", len(got))
	}
	if got, _ := s.Load(ctx, "s2"); len(got) != 1 {
		t.Fatalf("other cart has %d entries, want 1", len(got))
	}
}
