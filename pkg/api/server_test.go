package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carebase/pkg/config"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/middleware"
	"github.com/platinummonkey/carebase/pkg/observability"
	"github.com/platinummonkey/carebase/pkg/storage"
	"github.com/platinummonkey/carebase/pkg/storage/postgres"
)

// TestSessionLifecycle walks register, login, a protected call, logout and
// the rejected call that follows.
func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/users/register", "", map[string]string{
		"email": "a@x.com", "password": "secret1", "first_name": "A", "last_name": "X",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/users/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	rec = env.do(http.MethodGet, "/patients", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/users/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/patients", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token revoked", decodeBody(t, rec)["error"])
}

func TestGate_ProtectsResourceRoutes(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/patients"},
		{http.MethodGet, "/patients/1"},
		{http.MethodGet, "/guardians"},
		{http.MethodGet, "/diseases"},
		{http.MethodGet, "/attendance"},
		{http.MethodGet, "/history/patient/1"},
		{http.MethodDelete, "/history/patient/1"},
	}
	for _, p := range paths {
		rec := env.do(p.method, p.path, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, p.path)
		assert.Equal(t, "token not provided", decodeBody(t, rec)["error"], p.path)
	}

	rec := serve(env.handler, newRequest(http.MethodGet, "/patients", "Token abc"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeBody(t, rec)["error"])

	rec = env.do(http.MethodGet, "/patients", "forged.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeBody(t, rec)["error"])
}

func TestGate_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.login()

	env.users.mu.Lock()
	env.users.users = map[int64]*storage.User{}
	env.users.mu.Unlock()

	rec := env.do(http.MethodGet, "/patients", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "user not found", decodeBody(t, rec)["error"])
}

func TestRoutes(t *testing.T) {
	env := newTestEnv(t)
	router := NewServer(env.deps).Router()

	tests := []struct {
		method, path string
	}{
		{"POST", "/users/register"},
		{"POST", "/users/login"},
		{"POST", "/users/logout"},
		{"GET", "/patients"},
		{"POST", "/patients"},
		{"GET", "/patients/name/Maria"},
		{"GET", "/patients/1"},
		{"PUT", "/patients/1"},
		{"DELETE", "/patients/1"},
		{"GET", "/guardians"},
		{"POST", "/guardians"},
		{"GET", "/guardians/name/Joana"},
		{"GET", "/guardians/1"},
		{"PUT", "/guardians/1"},
		{"DELETE", "/guardians/1"},
		{"GET", "/diseases"},
		{"POST", "/diseases"},
		{"GET", "/diseases/name/Asthma"},
		{"GET", "/diseases/1"},
		{"PUT", "/diseases/1"},
		{"DELETE", "/diseases/1"},
		{"GET", "/attendance"},
		{"POST", "/attendance"},
		{"GET", "/attendance/patient/1"},
		{"PUT", "/attendance/1"},
		{"DELETE", "/attendance/1"},
		{"POST", "/history"},
		{"GET", "/history/patient/1"},
		{"DELETE", "/history/patient/1"},
	}

	for _, tt := range tests {
		var match mux.RouteMatch
		req := newRequest(tt.method, tt.path, "")
		assert.True(t, router.Match(req, &match), "%s %s", tt.method, tt.path)
	}
}

func TestNotFoundRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decodeBody(t, rec)["error"])
}

func TestHandler_SetsRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := newRequest(http.MethodGet, "/nope", "")
	req.Header.Set(httputil.RequestIDHeader, "req-123")
	rec := serve(env.handler, req)

	assert.Equal(t, "req-123", rec.Header().Get(httputil.RequestIDHeader))

	rec = serve(env.handler, newRequest(http.MethodGet, "/nope", ""))
	assert.NotEmpty(t, rec.Header().Get(httputil.RequestIDHeader))
}

func TestHandler_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := newRequest(http.MethodPost, "/users/login", "")
	req.Header.Set("Content-Type", "text/plain")
	rec := serve(env.handler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig(2, 0))
	env := newTestEnv(t, func(d *Dependencies) {
		d.LoginLimiter = middleware.NewRateLimitMiddleware(limiter)
	})

	creds := map[string]string{"email": "ghost@carebase.test", "password": "secret1"}
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/users/login", "", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/users/login", "", creds).Code)

	rec := env.do(http.MethodPost, "/users/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decodeBody(t, rec)["error"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Registration is not throttled
	rec = env.do(http.MethodPost, "/users/register", "", map[string]string{
		"email": "b@x.com", "password": "secret1", "first_name": "B", "last_name": "X",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLogoutRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig(3, 0))
	env := newTestEnv(t, func(d *Dependencies) {
		d.LogoutLimiter = middleware.NewRateLimitMiddleware(limiter)
	})
	token := env.login()

	for i := 0; i < 3; i++ {
		rec := env.do(http.MethodPost, "/users/logout", fmt.Sprintf("junk%d", i), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(http.MethodPost, "/users/logout", "junk-next", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The flood recorded nothing, and login is throttled separately
	rec = env.do(http.MethodGet, "/patients", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/users/login", "", map[string]string{
		"email": "nurse@carebase.test", "password": "secret1",
	}).Code)
}

func TestHTTPMetrics_UseRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	env := newTestEnv(t, func(d *Dependencies) {
		d.Metrics = metrics
	})
	token := env.login()

	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/patients/7", token, nil).Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/patients/{id:[0-9]+}", "404")))
}

// TestDiseases_PostgresRepository serves a route from the SQL repository
func TestDiseases_PostgresRepository(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repos := postgres.NewRepositories(db)
	env := newTestEnv(t, func(d *Dependencies) {
		d.Diseases = repos.Diseases
	})
	token := env.login()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM diseases WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(int64(3), "Asthma", now, now))
	mock.ExpectQuery(`SELECT .+ FROM diseases WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))

	rec := env.do(http.MethodGet, "/diseases/3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Asthma", decodeBody(t, rec)["name"])

	rec = env.do(http.MethodGet, "/diseases/4", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewHTTPServer(t *testing.T) {
	cfg := config.Default().Server
	cfg.Host = "127.0.0.1"
	cfg.Port = "8080"

	srv := NewHTTPServer(cfg, http.NotFoundHandler())
	assert.Equal(t, "127.0.0.1:8080", srv.Addr)
	assert.Equal(t, cfg.ReadTimeout, srv.ReadTimeout)

	opts := HandlerOptionsFrom(cfg)
	assert.Equal(t, cfg.MaxBodyBytes, opts.MaxBodyBytes)
}
