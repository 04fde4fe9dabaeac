package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/userservice"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fakeUsers map[int64]string

func (f fakeUsers) GetUser(_ context.Context, id int64) (*userservice.User, error) {
	if id == 500 {
		return nil, errors.New("connection refused")
	}
	if id == 403 {
		return nil, fmt.Errorf("%w: %q", userservice.ErrUnknownRole, "superuser")
	}
	role, ok := f[id]
	if !ok {
		return nil, userservice.ErrUserNotFound
	}
	return &userservice.User{ID: id, Role: role}, nil
}

type fakeLimiter struct {
	allowed int
	calls   int
	err     error
	perKey  map[string]int
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.perKey == nil {
		f.perKey = map[string]int{}
	}
	f.perKey[key]++
	return f.perKey[key] <= f.allowed, nil
}

type recordingMetrics struct {
	route, status string
}

func (m *recordingMetrics) ObserveHTTPRequest(_, route, status string, _ float64) {
	m.route = route
	m.status = status
}

func echoRequester(w http.ResponseWriter, r *http.Request) {
	requester, ok := GetRequester(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Header().Set("X-Role", string(requester.Role))
	w.WriteHeader(http.StatusNoContent)
}

func TestAuth(t *testing.T) {
	users := fakeUsers{5: "client", 1: "admin"}
	h := Auth(users, nopLogger{})(http.HandlerFunc(echoRequester))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantRole string
	}{
		{"client", "5", http.StatusNoContent, "client"},
		{"admin", "1", http.StatusNoContent, "admin"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not a number", "abc", http.StatusUnauthorized, ""},
		{"unknown user", "42", http.StatusUnauthorized, ""},
		{"user service down", "500", http.StatusInternalServerError, ""},
		{"unknown role", "403", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRole, rec.Header().Get("X-Role"))
		})
	}
}

func TestRequireRoles(t *testing.T) {
	h := RequireRoles(nopLogger{}, domain.RoleAdmin, domain.RoleSpecialist)(http.HandlerFunc(echoRequester))

	serve := func(ctx context.Context) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(WithRequester(context.Background(), domain.Requester{UserID: 1, Role: domain.RoleAdmin})))
	assert.Equal(t, http.StatusForbidden, serve(WithRequester(context.Background(), domain.Requester{UserID: 5, Role: domain.RoleClient})))
	assert.Equal(t, http.StatusUnauthorized, serve(context.Background()))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("over the limit", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: 2}
		h := RateLimit(limiter, RateLimitOptions{FailOpen: true}, nopLogger{})(ok)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("fail open", func(t *testing.T) {
		h := RateLimit(&fakeLimiter{err: errors.New("redis down")}, RateLimitOptions{FailOpen: true}, nopLogger{})(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fail closed", func(t *testing.T) {
		h := RateLimit(&fakeLimiter{err: errors.New("redis down")}, RateLimitOptions{}, nopLogger{})(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("rotating forwarded header does not reset the window", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: 2}
		h := RateLimit(limiter, RateLimitOptions{FailOpen: true}, nopLogger{})(ok)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "198.51.100.4:4000"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
		assert.Equal(t, map[string]int{"198.51.100.4": 3}, limiter.perKey)
	})

	t.Run("trusted proxy hop is the key", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: 2}
		h := RateLimit(limiter, RateLimitOptions{FailOpen: true, TrustForwarded: true}, nopLogger{})(ok)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:5555"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d, 198.51.100.4", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
		assert.Equal(t, map[string]int{"198.51.100.4": 3}, limiter.perKey)
	})
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientKey(req, false))
	assert.Equal(t, "10.0.0.1", clientKey(req, true), "no header falls back to the connection")

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.4")
	assert.Equal(t, "10.0.0.1", clientKey(req, false), "header ignored unless trusted")
	assert.Equal(t, "198.51.100.4", clientKey(req, true))

	req.Header.Add("X-Forwarded-For", "192.0.2.9")
	assert.Equal(t, "192.0.2.9", clientKey(req, true), "last header line wins")

	req.Header.Set("X-Forwarded-For", " , ")
	assert.Equal(t, "10.0.0.1", clientKey(req, true))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientKey(req, false))
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	metrics := &recordingMetrics{}
	router := mux.NewRouter()
	router.Use(Metrics(metrics))
	router.HandleFunc("/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/42", nil))

	assert.Equal(t, "/appointments/{id}", metrics.route)
	assert.Equal(t, "404", metrics.status)
}
