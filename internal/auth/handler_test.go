package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

type stubUserStore struct {
	users map[string]*User
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubUserStore) Warehouses(ctx context.Context, userID int64) ([]string, error) {
	for _, u := range s.users {
		if u.ID == userID {
			return u.Warehouses, nil
		}
	}
	return nil, shared.ErrNotFound
}

func newLoginServer(t *testing.T) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("cashier123"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &stubUserStore{users: map[string]*User{
		"cashier@atlas.local": {
			ID:           7,
			Email:        "cashier@atlas.local",
			Name:         "Cashier",
			PasswordHash: string(hash),
			Warehouses:   []string{"Main Depot - Normal"},
		},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(store, nil))

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postLogin(t *testing.T, srv *httptest.Server, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/auth/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(data)
}

func TestLoginReturnsUserAndWarehouses(t *testing.T) {
	srv := newLoginServer(t)

	resp, body := postLogin(t, srv, `{"email":"cashier@atlas.local","password":"cashier123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"id":7`)
	assert.Contains(t, body, `"name":"Cashier"`)
	assert.Contains(t, body, `"Main Depot - Normal"`)
	assert.NotContains(t, body, "password")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newLoginServer(t)

	resp, body := postLogin(t, srv, `{"email":"cashier@atlas.local","password":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "email or password incorrect")
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	srv := newLoginServer(t)

	resp, _ := postLogin(t, srv, `{"email":"ghost@atlas.local","password":"cashier123"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRequiresCredentials(t *testing.T) {
	srv := newLoginServer(t)

	resp, _ := postLogin(t, srv, `{"email":"","password":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginRejectsMalformedJSON(t *testing.T) {
	srv := newLoginServer(t)

	resp, _ := postLogin(t, srv, `{"email":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMayPostInWarehouseStrictIgnoresSubstitutes(t *testing.T) {
	store := &stubUserStore{users: map[string]*User{
		"depot@atlas.local": {ID: 3, Warehouses: []string{"Main Depot - Normal"}},
	}}
	svc := NewService(store, nil)
	ctx := context.Background()

	ok, err := svc.MayPostInWarehouse(ctx, 3, "Main Depot - Breakage", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.MayPostInWarehouse(ctx, 3, "Main Depot - Breakage", true)
	require.NoError(t, err)
	assert.False(t, ok)
}
