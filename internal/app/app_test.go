package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"registration-service/internal/auth"
	"registration-service/internal/catalog"
	"registration-service/internal/config"
	"registration-service/internal/health"
	"registration-service/internal/logger"
	"registration-service/internal/metrics"
	"registration-service/internal/realtime"
	"registration-service/internal/registration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubService answers every read with an empty result.
type stubService struct {
	created []registration.Input
}

func (s *stubService) Create(_ context.Context, in registration.Input) (*registration.Registration, error) {
	s.created = append(s.created, in)
	return &registration.Registration{ID: "00000000-0000-0000-0000-000000000001", Email: in.Email}, nil
}

func (s *stubService) List(_ context.Context, p registration.ListParams) (*registration.ListResult, error) {
	return &registration.ListResult{Page: 1, PageSize: 100}, nil
}

func (s *stubService) Get(context.Context, string) (*registration.Registration, error) {
	return &registration.Registration{}, nil
}

func (s *stubService) Delete(context.Context, string) error { return nil }

func (s *stubService) Stats(context.Context) (*registration.Stats, error) {
	return &registration.Stats{}, nil
}

type testRouter struct {
	handler http.Handler
	tokens  *auth.Tokens
	service *stubService
}

func newTestRouter(t *testing.T, withAuth bool) *testRouter {
	t.Helper()

	cfg := &config.Config{Env: "test"}
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	log := logger.Discard()

	room := realtime.NewRoom(4, log)
	ws := realtime.NewHandler(room, cfg.Server.CORSOrigins, log, metrics.NewMock())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ws.Shutdown(ctx)
		room.Close()
	})

	svc := &stubService{}
	r := routes{
		registrations: registration.NewHandler(svc, log, true),
		catalog:       catalog.NewHandler(catalog.New(false, nil)),
		realtime:      ws,
		health:        health.NewHandler(log),
	}

	tr := &testRouter{service: svc}
	if withAuth {
		hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
		require.NoError(t, err)
		authn, err := auth.NewStaticAuthenticator("admin", string(hash))
		require.NoError(t, err)
		tr.tokens = auth.NewTokens("router-test-secret-router-test-secret", time.Hour)
		r.auth = auth.NewHandler(auth.NewService(authn, tr.tokens, log), log)
		r.adminOnly = auth.Middleware(tr.tokens, log)
	}

	tr.handler = newRouter(cfg, log, r)
	return tr
}

func (tr *testRouter) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	tr.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_OpenMode(t *testing.T) {
	tr := newTestRouter(t, false)

	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/catalog", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/registrations", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/registrations/stats", "", nil).Code)

	// login is not mounted without auth
	assert.Equal(t, http.StatusNotFound, tr.do(http.MethodPost, "/api/auth/login", "{}", nil).Code)
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	tr := newTestRouter(t, true)

	rec := tr.do(http.MethodPost, "/api/registrations", `{"email":"a@example.com"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, "public create must not require a token")
	require.Len(t, tr.service.created, 1)

	for _, path := range []string{"/api/registrations", "/api/registrations/stats", "/ws"} {
		assert.Equal(t, http.StatusUnauthorized, tr.do(http.MethodGet, path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized,
		tr.do(http.MethodDelete, "/api/registrations/00000000-0000-0000-0000-000000000001", "", nil).Code)

	token, _, err := tr.tokens.Issue("admin")
	require.NoError(t, err)
	authz := http.Header{"Authorization": {"Bearer " + token}}
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/registrations", "", authz).Code)

	login := tr.do(http.MethodPost, "/api/auth/login", `{"username":"admin","password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	tr := newTestRouter(t, false)

	allowed := tr.do(http.MethodOptions, "/api/registrations", "", http.Header{
		"Origin":                        {"http://localhost:3000"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusNoContent, allowed.Code)
	assert.Equal(t, "http://localhost:3000", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := tr.do(http.MethodOptions, "/api/registrations", "", http.Header{
		"Origin":                        {"http://evil.example"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusForbidden, denied.Code)
}

func TestRouter_DisallowedOriginNeverReachesService(t *testing.T) {
	tr := newTestRouter(t, false)

	rec := tr.do(http.MethodPost, "/api/registrations", `{"fullName":"Asha Rao","email":"asha@example.com"}`, http.Header{
		"Origin":       {"http://evil.example"},
		"Content-Type": {"text/plain"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, tr.service.created)

	rec = tr.do(http.MethodPost, "/api/registrations", `{"email":"asha@example.com"}`, http.Header{
		"Origin": {"http://localhost:3000"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, tr.service.created, 1)
}
