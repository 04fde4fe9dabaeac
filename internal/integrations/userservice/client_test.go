package userservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func TestClient_GetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/users/42":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":42,"role":"specialist"}`))
		case "/internal/users/7":
			_, _ = w.Write([]byte(`{"id":7,"role":"superuser"}`))
		case "/internal/users/8":
			_, _ = w.Write([]byte(`{"id":9,"role":"client"}`))
		case "/internal/users/404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nopLogger{})

	user, err := client.GetUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: 42, Role: "specialist"}, user)

	_, err = client.GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = client.GetUser(context.Background(), 500)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = client.GetUser(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = client.GetUser(context.Background(), 8)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
