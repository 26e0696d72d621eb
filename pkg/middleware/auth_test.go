package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carebase/pkg/auth"
	"github.com/platinummonkey/carebase/pkg/contextkeys"
	"github.com/platinummonkey/carebase/pkg/storage"
)

type memUsers struct {
	mu      sync.Mutex
	users   map[int64]*storage.User
	nextID  int64
	findErr error
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) Create(_ context.Context, user *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

type gateFixture struct {
	service *auth.Service
	users   *memUsers
	tokens  *auth.TokenManager
	handler http.Handler
	reached bool
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{
		users:  &memUsers{users: make(map[int64]*storage.User)},
		tokens: auth.NewTokenManager([]byte("0123456789abcdef0123"), time.Hour),
	}
	service, err := auth.NewService(f.users, auth.NewBcryptHasher(4), f.tokens, auth.NewMemoryRevocationStore(time.Hour))
	require.NoError(t, err)
	f.service = service

	f.handler = NewAuthMiddleware(service).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.reached = true
		identity := GetIdentity(r)
		require.NotNil(t, identity)
		assert.Equal(t, "1", contextkeys.GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *gateFixture) serve(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *gateFixture) login(t *testing.T) string {
	t.Helper()
	_, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email: "a@x.com", Password: "secret1", FirstName: "Ana", LastName: "Lima",
	})
	require.NoError(t, err)
	session, err := f.service.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	return session.Token
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusBadRequest, `{"error":"token not provided"}`},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"bearer without token", "Bearer", http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"lowercase scheme", "bearer abc", http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, `{"error":"invalid token"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture(t)
			w := f.serve(tt.header)

			assert.False(t, f.reached)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestAuthMiddleware_AcceptsValidToken(t *testing.T) {
	f := newGateFixture(t)
	token := f.login(t)

	w := f.serve("Bearer " + token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.reached)
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	f := newGateFixture(t)
	token := f.login(t)
	require.NoError(t, f.service.Logout(context.Background(), "Bearer "+token))

	w := f.serve("Bearer " + token)

	assert.False(t, f.reached)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"token revoked"}`, w.Body.String())
}

func TestAuthMiddleware_UnknownUser(t *testing.T) {
	f := newGateFixture(t)
	token, _, err := f.tokens.Issue(42)
	require.NoError(t, err)

	w := f.serve("Bearer " + token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, w.Body.String())
}

func TestAuthMiddleware_StoreFailure(t *testing.T) {
	f := newGateFixture(t)
	token := f.login(t)
	f.users.findErr = errors.New("connection reset")

	w := f.serve("Bearer " + token)

	assert.False(t, f.reached)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestGetIdentity_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetIdentity(req))
}
