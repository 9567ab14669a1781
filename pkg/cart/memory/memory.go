// Package memory implements an in-memory cart store.
package memory

import (
	"context"
	"sync"

	"coffeeshop/pkg/cart"
)

type session struct {
	mu      sync.Mutex
	entries []cart.Entry
}

// Store keeps carts in process memory. The map lock only guards session
// lookup; each session has its own lock so different sessions never wait on
// each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// Load returns a copy of the session's entries.
func (s *Store) Load(ctx context.Context, sessionID string) ([]cart.Entry, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return clone(sess.entries), nil
}

// Update runs fn under the session's lock.
func (s *Store) Update(ctx context.Context, sessionID string, fn func([]cart.Entry) ([]cart.Entry, error)) ([]cart.Entry, error) {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next, err := fn(clone(sess.entries))
	if err != nil {
		return nil, err
	}
	sess.entries = clone(next)
	return next, nil
}

// Delete drops the session's cart.
func (s *Store) Delete(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len is the number of sessions holding a cart.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) session(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

func clone(entries []cart.Entry) []cart.Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]cart.Entry, len(entries))
	copy(out, entries)
	return out
}
