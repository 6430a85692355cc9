package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" || r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-1","email":"awa@farm.test"}`))
	})
	mux.HandleFunc("POST /auth/v1/invite", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "taken@farm.test" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"A user with this email address has already been registered"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-2","email":"` + body["email"].(string) + `"}`))
	})
	mux.HandleFunc("DELETE /auth/v1/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"User not found"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetUser(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(config.PlatformConfig{URL: srv.URL + "/", AnonKey: "anon"})

	user, err := c.GetUser(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "awa@farm.test", user.Email)

	_, err = c.GetUser(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminCalls(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(config.PlatformConfig{URL: srv.URL, AnonKey: "anon", ServiceRoleKey: "service"})
	ctx := context.Background()

	user, err := c.InviteUserByEmail(ctx, "new@farm.test", map[string]any{"full_name": "New Hand"})
	require.NoError(t, err)
	assert.Equal(t, "u-2", user.ID)

	_, err = c.InviteUserByEmail(ctx, "taken@farm.test", nil)
	assert.EqualError(t, err, "invite user: A user with this email address has already been registered")

	assert.NoError(t, c.DeleteUser(ctx, "u-2"))
	assert.EqualError(t, c.DeleteUser(ctx, "missing"), "delete user: User not found")
}

func TestAdminCallsNeedServiceKey(t *testing.T) {
	c := NewClient(config.PlatformConfig{URL: "http://unused", AnonKey: "anon"})

	_, err := c.InviteUserByEmail(context.Background(), "x@farm.test", nil)
	assert.ErrorIs(t, err, ErrAdminDisabled)
	assert.ErrorIs(t, c.DeleteUser(context.Background(), "u"), ErrAdminDisabled)
}
