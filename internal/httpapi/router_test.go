package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userAuthService/internal/auth"
	"userAuthService/internal/service"
	"userAuthService/internal/testutil"
	"userAuthService/models"
	"userAuthService/repository"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	tokens  *auth.TokenIssuer
	logs    *bytes.Buffer
}

func newTestAPI(t *testing.T, dbName string) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d := testutil.OpenInMemoryDB(t, dbName)
	tokens, err := auth.NewTokenIssuer(testutil.TestSecret, testutil.TestIssuer, time.Hour)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	svc := service.NewAuthService(repository.NewUserRepository(d), tokens, logger)
	return &testAPI{t: t, handler: NewRouter(svc, tokens, logger), tokens: tokens, logs: logs}
}

func (a *testAPI) do(method, path, body, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) register(username, password, role string) *httptest.ResponseRecorder {
	a.t.Helper()
	b, err := json.Marshal(map[string]string{"username": username, "password": password, "role": role})
	require.NoError(a.t, err)
	return a.do(http.MethodPost, "/api/auth/register", string(b), "")
}

func (a *testAPI) login(username, password string) *httptest.ResponseRecorder {
	a.t.Helper()
	b, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(a.t, err)
	return a.do(http.MethodPost, "/api/auth/login", string(b), "")
}

func (a *testAPI) tokenFor(username, password string) string {
	a.t.Helper()
	w := a.login(username, password)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp loginResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestLiveness(t *testing.T) {
	api := newTestAPI(t, "http_liveness")
	w := api.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, LivenessMessage, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newTestAPI(t, "http_flow")

	w := api.register("alice", "pw1", models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"registered"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "pw1")

	w = api.register("alice", "pw2", models.RoleUser)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errorResponse{Code: http.StatusBadRequest, Message: "username exists"}, decodeError(t, w))

	tok := api.tokenFor("alice", "pw1")
	p, err := api.tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, models.RoleUser, p.Role)

	w = api.login("alice", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusUnauthorized, decodeError(t, w).Code)

	w = api.login("ghost", "pw1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_BadBodies(t *testing.T) {
	api := newTestAPI(t, "http_bad_bodies")

	w := api.do(http.MethodPost, "/api/auth/register", `{"username":`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/auth/register", `{"username":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/auth/login", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t, "http_me")
	require.Equal(t, http.StatusOK, api.register("bob", "pw", "").Code)
	tok := api.tokenFor("bob", "pw")

	w := api.do(http.MethodGet, "/api/user/me", "", tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me service.CurrentUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "bob", me.Username)
	assert.NotZero(t, me.UserID)
	assert.Contains(t, w.Body.String(), `"userId"`)

	w = api.do(http.MethodGet, "/api/user/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/api/user/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_ExpiredToken(t *testing.T) {
	api := newTestAPI(t, "http_me_expired")
	claims := testutil.UserClaims(1, "bob", models.RoleUser)
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	tok := testutil.GenerateJWTHS256(t, testutil.TestSecret, claims)

	w := api.do(http.MethodGet, "/api/user/me", "", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUsers(t *testing.T) {
	api := newTestAPI(t, "http_admin")
	require.Equal(t, http.StatusOK, api.register("alice", "pw", models.RoleUser).Code)
	require.Equal(t, http.StatusOK, api.register("root", "pw", models.RoleAdmin).Code)

	userTok := api.tokenFor("alice", "pw")
	adminTok := api.tokenFor("root", "pw")

	w := api.do(http.MethodGet, "/api/admin/users", "", userTok)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errorResponse{Code: http.StatusForbidden, Message: "forbidden"}, decodeError(t, w))

	w = api.do(http.MethodGet, "/api/admin/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/api/admin/users", "", adminTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var users []service.UserSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, models.RoleAdmin, users[1].Role)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestBoom_IsCaughtByBoundary(t *testing.T) {
	api := newTestAPI(t, "http_boom")

	w := api.do(http.MethodGet, "/api/user/boom", "", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errorResponse{Code: http.StatusInternalServerError, Message: internalMessage}, decodeError(t, w))
	assert.NotContains(t, w.Body.String(), "simulated failure")
	assert.Contains(t, api.logs.String(), "unhandled panic")

	// The server keeps serving after a panic.
	w = api.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	api := newTestAPI(t, "http_reqid")
	const id = "8a5c8f5e-3c3b-4e43-9f0f-0c7a3f6f6b1e"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, id)
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get(requestIDHeader))
	assert.Contains(t, api.logs.String(), id)
}

func TestNewHandler_CORS(t *testing.T) {
	api := newTestAPI(t, "http_cors")
	h := NewHandler(api.handler.(*gin.Engine), []string{"http://app.test"})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Same(t, api.handler, NewHandler(api.handler.(*gin.Engine), nil))
}
