// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/folio/internal/api"
	"github.com/taibuivan/folio/internal/platform/config"
	"github.com/taibuivan/folio/internal/platform/constants"
	"github.com/taibuivan/folio/internal/platform/dberr"
	"github.com/taibuivan/folio/internal/platform/metrics"
	"github.com/taibuivan/folio/internal/platform/sec"
	"github.com/taibuivan/folio/internal/users/auth"
	"github.com/taibuivan/folio/internal/web/admin"
)

// # In-memory stores

type memoryStore struct {
	mu       sync.Mutex
	users    map[int64]*auth.User
	sessions map[string]*auth.Session
	nextID   int64
	failing  bool
}

func (store *memoryStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, user := range store.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *memoryStore) FindByID(_ context.Context, id int64) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if user, ok := store.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, dberr.ErrNotFound
}

func (store *memoryStore) Create(_ context.Context, user *auth.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.nextID++
	user.ID = store.nextID
	clone := *user
	store.users[user.ID] = &clone
	return nil
}

type memorySessions struct{ *memoryStore }

func (store memorySessions) Create(_ context.Context, session *auth.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	clone := *session
	store.sessions[session.Token] = &clone
	return nil
}

func (store memorySessions) FindActiveByToken(_ context.Context, token string, now time.Time) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failing {
		return nil, errors.New("connection refused")
	}
	session, ok := store.sessions[token]
	if !ok || !session.ExpiresAt.After(now) {
		return nil, dberr.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (store memorySessions) DeleteByToken(_ context.Context, token string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.sessions, token)
	return nil
}

func (store memorySessions) DeleteAllForUser(context.Context, int64) (int64, error) {
	return 0, nil
}

func (store memorySessions) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// # Fixture

type serverFixture struct {
	handler http.Handler
	store   *memoryStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &memoryStore{users: map[int64]*auth.User{}, sessions: map[string]*auth.Session{}}

	hasher := sec.NewPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("correct-pw")
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), &auth.User{Username: "admin", PasswordHash: hash}))

	codec, err := sec.NewSessionCodec([]byte("server-test-secret"), constants.AuthIssuer, auth.SessionTTL)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	telemetry := metrics.New(registry)

	service := auth.NewService(store, memorySessions{store}, hasher, codec, auth.WithObserver(telemetry))
	cookies := auth.NewCookieAuthenticator(service, false)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{ServerPort: "0", Environment: config.EnvDevelopment}
	server := api.NewServer(ctx, cfg, logger, cookies, telemetry, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:      auth.NewHandler(service, cookies),
		Admin:     admin.NewPages(cookies),
	})

	return &serverFixture{handler: server.Handler(), store: store}
}

func (f *serverFixture) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

func (f *serverFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	recorder := f.do(http.MethodPost, "/api/auth/login", `{"username":"admin","password":"correct-pw"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

/*
TestServer_AdminGuard redirects anonymous visitors but never loops on the login page.
*/
func TestServer_AdminGuard(t *testing.T) {
	f := newServerFixture(t)

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"dashboard", "/admin", http.StatusTemporaryRedirect, "/admin/login?redirect=%2Fadmin"},
		{"nested", "/admin/posts", http.StatusTemporaryRedirect, "/admin/login?redirect=%2Fadmin%2Fposts"},
		{"login_page", "/admin/login", http.StatusOK, ""},
		{"login_page_slash", "/admin/login/", http.StatusOK, ""},
		{"lookalike_prefix", "/administrator", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := f.do(http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantLocation, recorder.Header().Get("Location"))
		})
	}
}

/*
TestServer_AdminShell_ForgedCookie passes the edge but fails deep verification.
*/
func TestServer_AdminShell_ForgedCookie(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.do(http.MethodGet, "/admin/", "", &http.Cookie{Name: auth.SessionCookieName, Value: "forged"})

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/admin/login?redirect=%2Fadmin%2F", recorder.Header().Get("Location"))

	recorder = f.do(http.MethodGet, "/admin/", "", f.login(t))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Welcome, admin")
}

/*
TestServer_Protected requires a live session.
*/
func TestServer_Protected(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.do(http.MethodGet, "/api/admin/protected", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// API paths self-guard; the edge redirect never applies to them.
	assert.Empty(t, recorder.Header().Get("Location"))

	cookie := f.login(t)
	recorder = f.do(http.MethodGet, "/api/admin/protected", "", cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"authenticated":true,"message":"This is a protected resource"}`, recorder.Body.String())

	f.do(http.MethodPost, "/api/auth/logout", "", cookie)
	recorder = f.do(http.MethodGet, "/api/admin/protected", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestServer_Protected_StoreFailure answers 500, not 401.
*/
func TestServer_Protected_StoreFailure(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t)

	f.store.mu.Lock()
	f.store.failing = true
	f.store.mu.Unlock()

	recorder := f.do(http.MethodGet, "/api/admin/protected", "", cookie)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "connection refused")
}

/*
TestServer_Infrastructure exposes health, readiness and metrics.
*/
func TestServer_Infrastructure(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))

	recorder = f.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"postgres"`)

	f.login(t)
	recorder = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `folio_auth_logins_total{outcome="success"} 1`)
	assert.Contains(t, recorder.Body.String(), `route="/api/auth/login"`)
}
