package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/application/service"
	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/credence/internal/infrastructure/ratelimit"
	"github.com/turtacn/credence/internal/interfaces/http/handlers"
	"github.com/turtacn/credence/internal/interfaces/http/middleware"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
)

var testParams = crypto.DigestParams{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type apiFixture struct {
	router *Router
}

func newAPIFixture(t *testing.T, requireTLS bool) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := logger.NewNoopLogger()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			Environment:    constants.EnvironmentTest,
			RequireTLS:     requireTLS,
			AllowedOrigins: []string{"*"},
		},
	}

	conn, err := postgres.NewDBConnection(ctx, &config.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		AutoMigrate: true,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	recordKey, err := crypto.GenerateKeySecret()
	require.NoError(t, err)
	tokenKey, err := crypto.GenerateKeySecret()
	require.NoError(t, err)
	ks, err := crypto.NewKeyStore(crypto.WithRecordKey(recordKey), crypto.WithTokenKey(tokenKey))
	require.NoError(t, err)
	cipher, err := crypto.NewFieldCipher(ks)
	require.NoError(t, err)
	tokens, err := crypto.NewTokenManager(ks)
	require.NoError(t, err)

	accountRepo := postgres.NewAccountRepository(conn.DB(), log)
	accounts := service.NewAccountAppService(accountRepo, nil, testParams, log)
	projects := service.NewProjectAppService(
		accountRepo,
		postgres.NewProjectRepository(conn.DB(), log),
		postgres.NewDocumentRepository(conn.DB(), cipher, nil, log),
		log,
	)
	limiter := ratelimit.NewMemoryRateLimiter(&ratelimit.RateLimiterConfig{Limit: 100, Window: time.Minute})
	auth := service.NewAuthAppService(accountRepo, tokens, limiter, nil, nil, testParams, log)

	router := NewRouter(cfg, Dependencies{
		Authenticator:  middleware.NewRequestAuthenticator(tokens, accountRepo, &cfg.Server, nil, nil, log),
		AuthHandler:    handlers.NewAuthHandler(auth),
		AccountHandler: handlers.NewAccountHandler(accounts, log),
		ProjectHandler: handlers.NewProjectHandler(projects),
		HealthHandler:  handlers.NewHealthHandler(map[string]handlers.HealthChecker{"database": conn}, log),
		SignupLimiter:  limiter,
	}, log)
	return &apiFixture{router: router}
}

type call struct {
	method string
	path   string
	body   string
	token  string
	plain  bool
}

func (f *apiFixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(c.method, c.path, bytes.NewReader([]byte(c.body)))
	if c.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(constants.HeaderAuthorization, "Bearer "+c.token)
	}
	if !c.plain {
		req.TLS = &tls.ConnectionState{}
	}
	w := httptest.NewRecorder()
	f.router.Handler().ServeHTTP(w, req)
	return w
}

// signup creates an account and returns a token for it.
func (f *apiFixture) signup(t *testing.T, username string) string {
	t.Helper()
	w := f.do(t, call{method: http.MethodPost, path: "/api/v1/accounts",
		body: fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"correct horse"}`, username, username)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/auth/authenticate",
		body: fmt.Sprintf(`{"username":%q,"password":"correct horse"}`, username)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out dto.AuthenticatedAccount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.AuthToken)
	return out.AuthToken
}

func (f *apiFixture) createProject(t *testing.T, token, name string) string {
	t.Helper()
	w := f.do(t, call{method: http.MethodPost, path: "/api/v1/projects", token: token,
		body: fmt.Sprintf(`{"name":%q}`, name)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p dto.ProjectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p.ID.String()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestRouter_Root(t *testing.T) {
	f := newAPIFixture(t, false)
	w := f.do(t, call{method: http.MethodGet, path: "/", plain: true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"CredenceAPI up at /api/v1"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(constants.HeaderRequestID))
}

func TestRouter_NoRoute(t *testing.T) {
	f := newAPIFixture(t, false)
	w := f.do(t, call{method: http.MethodGet, path: "/api/v2/nothing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w)["error"])
}

func TestRouter_Health(t *testing.T) {
	f := newAPIFixture(t, true)

	w := f.do(t, call{method: http.MethodGet, path: "/health/live", plain: true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, call{method: http.MethodGet, path: "/health/ready", plain: true})
	assert.Equal(t, http.StatusOK, w.Code)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ready", health.Status)
	assert.Contains(t, health.Components, "database")
}

func TestRouter_Authenticate(t *testing.T) {
	f := newAPIFixture(t, false)
	f.signup(t, "alice")

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"wrong password", `{"username":"alice","password":"wrong"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"mallory","password":"correct horse"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"alice"}`, http.StatusBadRequest},
		{"extra field", `{"username":"alice","password":"correct horse","admin":true}`, http.StatusBadRequest},
		{"not json", `username=alice`, http.StatusBadRequest},
	}
	var unauthorized []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, call{method: http.MethodPost, path: "/api/v1/auth/authenticate", body: tt.body})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotContains(t, w.Body.String(), "auth_token")
			if w.Code == http.StatusUnauthorized {
				unauthorized = append(unauthorized, w.Body.String())
			}
		})
	}

	require.Len(t, unauthorized, 2)
	assert.Equal(t, unauthorized[0], unauthorized[1], "unknown user and wrong password must be indistinguishable")
	assert.Contains(t, unauthorized[0], "Invalid credentials")
}

func TestRouter_Projects(t *testing.T) {
	f := newAPIFixture(t, false)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	first := f.createProject(t, alice, "first")
	f.createProject(t, alice, "second")
	bobs := f.createProject(t, bob, "bobs")

	t.Run("lists only own projects", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/projects", token: alice})
		require.Equal(t, http.StatusOK, w.Code)
		var list dto.ProjectListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Equal(t, 2, list.Count)
		assert.Len(t, list.Data, 2)
	})

	t.Run("get own project", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/projects/" + first, token: alice})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name     string
		call     call
		wantCode int
		wantErr  string
	}{
		{"no token", call{method: http.MethodGet, path: "/api/v1/projects"}, http.StatusForbidden, "invalid_token"},
		{"garbage token", call{method: http.MethodGet, path: "/api/v1/projects", token: "not-a-token"}, http.StatusForbidden, "invalid_token"},
		{"tampered token", call{method: http.MethodGet, path: "/api/v1/projects", token: alice + "x"}, http.StatusForbidden, "invalid_token"},
		{"another owner's project", call{method: http.MethodGet, path: "/api/v1/projects/" + bobs, token: alice}, http.StatusNotFound, "not_found"},
		{"sql injection id", call{method: http.MethodGet, path: "/api/v1/projects/1%27%20OR%20%271%27=%271", token: alice}, http.StatusNotFound, "not_found"},
		{"unknown id", call{method: http.MethodGet, path: "/api/v1/projects/" + uuid.NewString(), token: alice}, http.StatusNotFound, "not_found"},
		{"another user's account", call{method: http.MethodGet, path: "/api/v1/accounts/bob", token: alice}, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.call)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, w)["error"])
		})
	}

	t.Run("own account", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/accounts/alice", token: alice})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "digest")
		assert.NotContains(t, w.Body.String(), "password")
	})
}

func TestRouter_Documents(t *testing.T) {
	f := newAPIFixture(t, false)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	project := f.createProject(t, alice, "docs")

	w := f.do(t, call{method: http.MethodPost, path: "/api/v1/projects/" + project + "/documents", token: alice,
		body: `{"filename":"notes.md","relative_path":"docs/notes.md","content":"top secret"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	require.NotEmpty(t, location)

	w = f.do(t, call{method: http.MethodGet, path: location, token: alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "top secret")

	w = f.do(t, call{method: http.MethodGet, path: location, token: bob})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, call{method: http.MethodGet, path: "/api/v1/projects/" + project + "/documents", token: alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRouter_Collaborators(t *testing.T) {
	f := newAPIFixture(t, false)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	project := f.createProject(t, alice, "shared")
	collaborators := "/api/v1/projects/" + project + "/collaborators"

	w := f.do(t, call{method: http.MethodGet, path: "/api/v1/projects/" + project, token: bob})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, call{method: http.MethodPost, path: collaborators, token: alice, body: `{"username":"bob"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"bob"`)

	w = f.do(t, call{method: http.MethodGet, path: "/api/v1/projects/" + project, token: bob})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, call{method: http.MethodGet, path: "/api/v1/projects", token: bob})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = f.do(t, call{method: http.MethodPost, path: collaborators, token: bob, body: `{"username":"alice"}`})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, call{method: http.MethodPost, path: collaborators, token: alice, body: `{"username":"bob","role":"admin"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_MassAssignment(t *testing.T) {
	f := newAPIFixture(t, false)
	alice := f.signup(t, "alice")

	tests := []struct {
		name string
		path string
		body string
	}{
		{"account with id", "/api/v1/accounts", `{"username":"eve","email":"eve@example.com","password":"correct horse","id":"` + uuid.NewString() + `"}`},
		{"account with digest", "/api/v1/accounts", `{"username":"eve","email":"eve@example.com","password":"correct horse","password_digest":"x"}`},
		{"project with owner", "/api/v1/projects", `{"name":"p","owner_id":"` + uuid.NewString() + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, call{method: http.MethodPost, path: tt.path, token: alice, body: tt.body})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, w.Header().Get("Location"))
		})
	}

	w := f.do(t, call{method: http.MethodPost, path: "/api/v1/auth/authenticate", body: `{"username":"eve","password":"correct horse"}`})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "rejected signup must not create the account")
}

func TestRouter_RequireTLS(t *testing.T) {
	f := newAPIFixture(t, true)
	token := f.signup(t, "alice")

	insecure := []call{
		{method: http.MethodGet, path: "/api/v1/projects", token: token, plain: true},
		{method: http.MethodPost, path: "/api/v1/auth/authenticate", body: `{"username":"alice","password":"correct horse"}`, plain: true},
		{method: http.MethodPost, path: "/api/v1/accounts", body: `{"username":"eve","email":"eve@example.com","password":"correct horse"}`, plain: true},
	}
	for _, c := range insecure {
		w := f.do(t, c)
		assert.Equal(t, http.StatusForbidden, w.Code, c.path)
		assert.Contains(t, w.Body.String(), "TLS/SSL Required")
		assert.NotContains(t, w.Body.String(), "auth_token")
	}

	w := f.do(t, call{method: http.MethodGet, path: "/", plain: true})
	assert.Equal(t, http.StatusOK, w.Code)
}
