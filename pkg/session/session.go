// Package session identifies anonymous shoppers by an HTTP-only cookie.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"coffeeshop/pkg/logger"
)

// CookieName is the cookie carrying the session id.
const CookieName = "cart_id"

// Registry remembers which session ids were issued.
type Registry interface {
	// Touch reports whether id is a live session and extends its lifetime.
	Touch(ctx context.Context, id string) (bool, error)
	// Create registers a new session id.
	Create(ctx context.Context, id string) error
}

type ctxKey struct{}

// WithID returns a context carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the session id set by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware resolves the session cookie. A missing or unknown cookie gets a
// fresh session id, which is registered and sent back as a cookie.
func Middleware(reg Registry, ttl time.Duration, secure bool, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
				ok, err := reg.Touch(ctx, c.Value)
				if err != nil {
					log.Error(ctx, "session lookup", "error", err)
					http.Error(w, "session error", http.StatusInternalServerError)
					return
				}
				if ok {
					next.ServeHTTP(w, r.WithContext(WithID(ctx, c.Value)))
					return
				}
			}

			sid := uuid.NewString()
			if err := reg.Create(ctx, sid); err != nil {
				log.Error(ctx, "session create", "error", err)
				http.Error(w, "session error", http.StatusInternalServerError)
				return
			}
			cookie := &http.Cookie{
				Name:     CookieName,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			}
			// A zero ttl means the session never expires server side, so the
			// cookie lives for the browser session.
			if ttl > 0 {
				cookie.MaxAge = int(ttl.Seconds())
				cookie.Expires = time.Now().Add(ttl)
			}
			http.SetCookie(w, cookie)
			log.Debug(ctx, "session created", "session", sid)
			next.ServeHTTP(w, r.WithContext(WithID(ctx, sid)))
		})
	}
}

// ExpireFunc is called with the id of every session a MemoryRegistry drops.
type ExpireFunc func(ctx context.Context, id string)

// MemoryRegistry keeps sessions in process memory. Expired sessions are
// dropped when touched or by Sweep.
type MemoryRegistry struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]time.Time
	onExpire ExpireFunc
}

// MemoryOption configures a MemoryRegistry.
type MemoryOption func(*MemoryRegistry)

// WithExpireFunc registers fn to release per-session state, such as an
// in-memory cart, when a session expires.
func WithExpireFunc(fn ExpireFunc) MemoryOption {
	return func(m *MemoryRegistry) { m.onExpire = fn }
}

// NewMemoryRegistry returns a registry whose sessions expire ttl after their
// last use. A ttl of zero never expires.
func NewMemoryRegistry(ttl time.Duration, opts ...MemoryOption) *MemoryRegistry {
	m := &MemoryRegistry{ttl: ttl, now: time.Now, sessions: make(map[string]time.Time)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Touch reports whether id is live and slides its expiry forward.
func (m *MemoryRegistry) Touch(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	now := m.now()
	if m.ttl > 0 && now.After(exp) {
		m.drop(ctx, id)
		return false, nil
	}
	m.sessions[id] = m.expiry(now)
	return true, nil
}

// Create registers id.
func (m *MemoryRegistry) Create(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = m.expiry(m.now())
	return nil
}

// Sweep drops every expired session and returns how many were dropped.
func (m *MemoryRegistry) Sweep(ctx context.Context) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, exp := range m.sessions {
		if now.After(exp) {
			m.drop(ctx, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *MemoryRegistry) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep(ctx)
		}
	}
}

// drop removes id; m.mu must be held.
func (m *MemoryRegistry) drop(ctx context.Context, id string) {
	delete(m.sessions, id)
	if m.onExpire != nil {
		m.onExpire(ctx, id)
	}
}

func (m *MemoryRegistry) expiry(now time.Time) time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(m.ttl)
}

// RedisRegistry stores sessions as "session:<id>" keys with a TTL.
type RedisRegistry struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisRegistry returns a registry whose keys expire ttl after last use.
// A ttl of zero never expires.
func NewRedisRegistry(client redis.Cmdable, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

// Touch reports whether id exists and refreshes its TTL.
func (r *RedisRegistry) Touch(ctx context.Context, id string) (bool, error) {
	if r.ttl <= 0 {
		n, err := r.client.Exists(ctx, "session:"+id).Result()
		return n == 1, err
	}
	return r.client.Expire(ctx, "session:"+id, r.ttl).Result()
}

// Create stores id with the registry's TTL.
func (r *RedisRegistry) Create(ctx context.Context, id string) error {
	return r.client.Set(ctx, "session:"+id, "active", r.ttl).Err()
}
