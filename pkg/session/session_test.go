package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/logger"
)

func echoSession(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(id))
	})
}

func TestMiddlewareIssuesCookie(t *testing.T) {
	reg := NewMemoryRegistry(time.Hour)
	h := Middleware(reg, time.Hour, false, logger.Nop())(echoSession(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, c.Value, rec.Body.String())

	ok, err := reg.Touch(context.Background(), c.Value)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMiddlewareSessionCookieWithoutTTL(t *testing.T) {
	reg := NewMemoryRegistry(0)
	h := Middleware(reg, 0, false, logger.Nop())(echoSession(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, 0, cookies[0].MaxAge)
	assert.True(t, cookies[0].Expires.IsZero())
	assert.NotContains(t, rec.Header().Get("Set-Cookie"), "Max-Age")
	assert.NotContains(t, rec.Header().Get("Set-Cookie"), "Expires")
}

func TestMiddlewareReusesKnownSession(t *testing.T) {
	reg := NewMemoryRegistry(time.Hour)
	require.NoError(t, reg.Create(context.Background(), "known"))
	h := Middleware(reg, time.Hour, false, logger.Nop())(echoSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "known"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "known", rec.Body.String())
}

func TestMiddlewareReplacesUnknownSession(t *testing.T) {
	reg := NewMemoryRegistry(time.Hour)
	h := Middleware(reg, time.Hour, false, logger.Nop())(echoSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "forged", rec.Body.String())
}

type failingRegistry struct{}

func (failingRegistry) Touch(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingRegistry) Create(context.Context, string) error         { return errors.New("down") }

func TestMiddlewareRegistryFailure(t *testing.T) {
	h := Middleware(failingRegistry{}, time.Hour, false, logger.Nop())(echoSession(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMemoryRegistryExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewMemoryRegistry(time.Minute)
	reg.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, "s1"))

	now = now.Add(30 * time.Second)
	ok, _ := reg.Touch(ctx, "s1")
	assert.True(t, ok)

	// Touch slid the expiry forward.
	now = now.Add(45 * time.Second)
	ok, _ = reg.Touch(ctx, "s1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = reg.Touch(ctx, "s1")
	assert.False(t, ok)
}

func TestMemoryRegistrySweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var expired []string
	reg := NewMemoryRegistry(time.Minute, WithExpireFunc(func(_ context.Context, id string) {
		expired = append(expired, id)
	}))
	reg.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, "idle"))
	require.NoError(t, reg.Create(ctx, "active"))

	now = now.Add(45 * time.Second)
	ok, _ := reg.Touch(ctx, "active")
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, reg.Sweep(ctx))
	assert.Equal(t, []string{"idle"}, expired)
	assert.Len(t, reg.sessions, 1)

	// An expired session found by Touch is released the same way.
	now = now.Add(2 * time.Minute)
	ok, _ = reg.Touch(ctx, "active")
	assert.False(t, ok)
	assert.Equal(t, []string{"idle", "active"}, expired)
	assert.Empty(t, reg.sessions)
}

func TestMemoryRegistrySweepWithoutTTL(t *testing.T) {
	reg := NewMemoryRegistry(0, WithExpireFunc(func(context.Context, string) {
		t.Fatal("no session should expire")
	}))
	reg.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	require.NoError(t, reg.Create(ctx, "s1"))

	assert.Equal(t, 0, reg.Sweep(ctx))
	ok, _ := reg.Touch(ctx, "s1")
	assert.True(t, ok)
}

func TestMemoryRegistryRunStops(t *testing.T) {
	reg := NewMemoryRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisRegistry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	reg := NewRedisRegistry(db, time.Hour)
	ctx := context.Background()

	mock.ExpectSet("session:abc", "active", time.Hour).SetVal("OK")
	require.NoError(t, reg.Create(ctx, "abc"))

	mock.ExpectExpire("session:abc", time.Hour).SetVal(true)
	ok, err := reg.Touch(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExpire("session:missing", time.Hour).SetVal(false)
	ok, err = reg.Touch(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
