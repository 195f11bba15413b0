package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{Name: "issue-tracker", Version: "test", RequestTimeoutSeconds: 10},
		Storage: config.StorageConfig{
			Driver:      config.DriverMemory,
			UsersTable:  "users",
			IssuesTable: "issues",
		},
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			AccessTokenTTLMinutes:  1440,
			RefreshTokenTTLMinutes: 10080,
			BcryptCost:             4,
			RevocationDriver:       config.DriverMemory,
		},
	}
}

type result struct {
	status  int
	header  http.Header
	raw     []byte
	payload map[string]any
}

func (r result) data() map[string]any {
	data, _ := r.payload["data"].(map[string]any)
	return data
}

func do(t *testing.T, a *App, method, path string, body any, bearer string) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := a.Fiber.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	res := result{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &res.payload), string(raw))
	}
	return res
}

func assertCORS(t *testing.T, res result) {
	t.Helper()
	assert.Equal(t, "*", res.header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type,Authorization", res.header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET,POST,PUT,DELETE,OPTIONS", res.header.Get("Access-Control-Allow-Methods"))
}

func assertError(t *testing.T, res result, status int, code string) {
	t.Helper()
	assert.Equal(t, status, res.status, string(res.raw))
	assertCORS(t, res)
	assert.Equal(t, "application/json", res.header.Get("Content-Type"))
	assert.Equal(t, false, res.payload["success"])
	assert.Equal(t, code, res.payload["error"])
	assert.NotEmpty(t, res.payload["message"])
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := New(testConfig(), zap.NewNop(), Dependencies{})
	t.Cleanup(a.Close)
	return a
}

var registration = map[string]any{
	"email":     "a@b.com",
	"password":  "password1",
	"firstName": "A",
	"lastName":  "B",
}

func TestScenario_RegisterThenDuplicate(t *testing.T) {
	a := newTestApp(t)

	res := do(t, a, "POST", "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assertCORS(t, res)
	assert.Equal(t, "application/json", res.header.Get("Content-Type"))
	assert.Equal(t, true, res.payload["success"])
	user := res.data()["user"].(map[string]any)
	assert.Equal(t, "PENDING_VERIFICATION", user["status"])
	assert.Equal(t, "END_USER", user["role"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotEmpty(t, res.data()["token"])
	assert.NotEmpty(t, res.data()["refreshToken"])
	assert.EqualValues(t, 86400, res.data()["expiresIn"])

	dup := do(t, a, "POST", "/auth/register", registration, "")
	assertError(t, dup, http.StatusConflict, "ConflictError")
}

func TestRegister_ShortPassword(t *testing.T) {
	a := newTestApp(t)
	res := do(t, a, "POST", "/auth/register", map[string]any{
		"email": "a@b.com", "password": "short", "firstName": "A", "lastName": "B",
	}, "")
	assertError(t, res, http.StatusBadRequest, "ValidationError")
	assert.Contains(t, res.payload["message"], "password must be at least 8 characters")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	a := newTestApp(t)
	res := do(t, a, "POST", "/auth/register", map[string]any{
		"email": "a@b.com", "password": strings.Repeat("p", 80), "firstName": "A", "lastName": "B",
	}, "")
	assertError(t, res, http.StatusBadRequest, "ValidationError")
	assert.Contains(t, res.payload["message"], "password must be at most 72 bytes")

	res = do(t, a, "POST", "/auth/register", map[string]any{
		"email": "a@b.com", "password": "密码密码", "firstName": "A", "lastName": "B",
	}, "")
	assertError(t, res, http.StatusBadRequest, "ValidationError")
}

func TestRegister_MalformedJSON(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.Fiber.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScenario_CreateThenGetIssue(t *testing.T) {
	a := newTestApp(t)

	created := do(t, a, "POST", "/issues", map[string]any{"title": "Bug", "description": "desc"}, "")
	require.Equal(t, http.StatusCreated, created.status, string(created.raw))
	assertCORS(t, created)
	assert.Equal(t, "OPEN", created.payload["status"])
	assert.Equal(t, "MEDIUM", created.payload["priority"])
	assert.Equal(t, "anonymous", created.payload["reporter"])
	assert.NotContains(t, created.payload, "success")
	id, _ := created.payload["issueId"].(string)
	require.NotEmpty(t, id)

	got := do(t, a, "GET", "/issues/"+id, nil, "")
	require.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, id, got.payload["issueId"])
	assert.Equal(t, "desc", got.payload["description"])
}

func TestScenario_DeleteUnknownIssue(t *testing.T) {
	a := newTestApp(t)

	for i := 0; i < 2; i++ {
		res := do(t, a, "DELETE", "/issues/never-created", nil, "")
		assert.Equal(t, http.StatusNoContent, res.status)
		assert.Empty(t, res.raw)
		assertCORS(t, res)
	}
}

func TestScenario_UnknownPath(t *testing.T) {
	a := newTestApp(t)
	res := do(t, a, "GET", "/unknown-path", nil, "")
	assertError(t, res, http.StatusNotFound, "NotFoundError")
	assert.Equal(t, "Not Found", res.payload["message"])
}

func TestRouting_NotFoundCombinations(t *testing.T) {
	a := newTestApp(t)
	cases := []struct{ method, path string }{
		{"PATCH", "/issues/1"},
		{"POST", "/issues/1"},
		{"GET", "/issues/123/comments"},
		{"GET", "/auth/login"},
		{"DELETE", "/issues"},
		{"PUT", "/auth/me"},
	}
	for _, tc := range cases {
		res := do(t, a, tc.method, tc.path, nil, "")
		assertError(t, res, http.StatusNotFound, "NotFoundError")
	}
}

func TestPreflight(t *testing.T) {
	a := newTestApp(t)

	res := do(t, a, "OPTIONS", "/issues/abc", nil, "")
	assert.Equal(t, http.StatusNoContent, res.status)
	assertCORS(t, res)

	res = do(t, a, "OPTIONS", "/auth/login", nil, "")
	assert.Equal(t, http.StatusNoContent, res.status)

	res = do(t, a, "OPTIONS", "/nowhere", nil, "")
	assertError(t, res, http.StatusNotFound, "NotFoundError")
}

func TestIssue_UpdateAndMissing(t *testing.T) {
	a := newTestApp(t)
	created := do(t, a, "POST", "/issues", map[string]any{"title": "Bug", "tags": []string{"ui", " ui "}}, "")
	require.Equal(t, http.StatusCreated, created.status)
	id := created.payload["issueId"].(string)
	assert.Equal(t, []any{"ui"}, created.payload["tags"])

	updated := do(t, a, "PUT", "/issues/"+id, map[string]any{"status": "in_progress", "assignee": "u-2"}, "")
	require.Equal(t, http.StatusOK, updated.status, string(updated.raw))
	assert.Equal(t, "IN_PROGRESS", updated.payload["status"])
	assert.Equal(t, "u-2", updated.payload["assignee"])
	assert.Equal(t, "Bug", updated.payload["title"])

	bad := do(t, a, "PUT", "/issues/"+id, map[string]any{"priority": "urgent"}, "")
	assertError(t, bad, http.StatusBadRequest, "ValidationError")

	missing := do(t, a, "PUT", "/issues/nope", map[string]any{"status": "CLOSED"}, "")
	assertError(t, missing, http.StatusNotFound, "NotFoundError")

	missing = do(t, a, "GET", "/issues/nope", nil, "")
	assertError(t, missing, http.StatusNotFound, "NotFoundError")

	noTitle := do(t, a, "POST", "/issues", map[string]any{"description": "x"}, "")
	assertError(t, noTitle, http.StatusBadRequest, "ValidationError")
}

func TestIssue_DeleteTwice(t *testing.T) {
	a := newTestApp(t)
	created := do(t, a, "POST", "/issues", map[string]any{"title": "Bug"}, "")
	id := created.payload["issueId"].(string)

	assert.Equal(t, http.StatusNoContent, do(t, a, "DELETE", "/issues/"+id, nil, "").status)
	assert.Equal(t, http.StatusNoContent, do(t, a, "DELETE", "/issues/"+id, nil, "").status)
	assert.Equal(t, http.StatusNotFound, do(t, a, "GET", "/issues/"+id, nil, "").status)
}

func TestIssue_ListAndPaging(t *testing.T) {
	a := newTestApp(t)
	for _, title := range []string{"one", "two", "three"} {
		require.Equal(t, http.StatusCreated, do(t, a, "POST", "/issues", map[string]any{"title": title}, "").status)
	}

	all := do(t, a, "GET", "/issues", nil, "")
	require.Equal(t, http.StatusOK, all.status)
	assert.EqualValues(t, 3, all.payload["count"])
	assert.Len(t, all.payload["items"], 3)
	assert.Nil(t, all.payload["nextToken"])
	assert.Contains(t, all.payload, "nextToken")

	seen := 0
	path := "/issues?limit=2"
	for i := 0; i < 5; i++ {
		page := do(t, a, "GET", path, nil, "")
		require.Equal(t, http.StatusOK, page.status, string(page.raw))
		seen += len(page.payload["items"].([]any))
		next, ok := page.payload["nextToken"].(string)
		if !ok {
			break
		}
		path = "/issues?limit=2&nextToken=" + next
	}
	assert.Equal(t, 3, seen)

	assertError(t, do(t, a, "GET", "/issues?limit=0", nil, ""), http.StatusBadRequest, "ValidationError")
	assertError(t, do(t, a, "GET", "/issues?limit=abc", nil, ""), http.StatusBadRequest, "ValidationError")
	assertError(t, do(t, a, "GET", "/issues?limit=500", nil, ""), http.StatusBadRequest, "ValidationError")
	assertError(t, do(t, a, "GET", "/issues?limit=2&nextToken=zzz", nil, ""), http.StatusBadRequest, "ValidationError")
}

func TestIssue_ReporterFromBearer(t *testing.T) {
	a := newTestApp(t)
	reg := do(t, a, "POST", "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, reg.status)
	token := reg.data()["token"].(string)
	userID := reg.data()["user"].(map[string]any)["userId"].(string)

	created := do(t, a, "POST", "/issues", map[string]any{"title": "Bug", "reporter": "someone"}, token)
	require.Equal(t, http.StatusCreated, created.status)
	assert.Equal(t, userID, created.payload["reporter"])

	viaPayload := do(t, a, "POST", "/issues", map[string]any{"title": "Bug", "reporter": "someone"}, "")
	assert.Equal(t, "someone", viaPayload.payload["reporter"])

	invalid := do(t, a, "POST", "/issues", map[string]any{"title": "Bug"}, "not-a-jwt")
	assertError(t, invalid, http.StatusUnauthorized, "AuthenticationError")
}

func TestAuth_LoginRequiresActivation(t *testing.T) {
	a := newTestApp(t)
	require.Equal(t, http.StatusCreated, do(t, a, "POST", "/auth/register", registration, "").status)

	creds := map[string]any{"email": "a@b.com", "password": "password1"}
	assertError(t, do(t, a, "POST", "/auth/login", creds, ""), http.StatusUnauthorized, "AuthenticationError")

	_, err := a.Auth.ActivateUser(context.Background(), "a@b.com")
	require.NoError(t, err)

	res := do(t, a, "POST", "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	user := res.data()["user"].(map[string]any)
	assert.Equal(t, "ACTIVE", user["status"])
	assert.NotNil(t, user["lastLoginAt"])

	wrong := do(t, a, "POST", "/auth/login", map[string]any{"email": "a@b.com", "password": "password2"}, "")
	assertError(t, wrong, http.StatusUnauthorized, "AuthenticationError")

	bad := do(t, a, "POST", "/auth/login", map[string]any{"email": "nope"}, "")
	assertError(t, bad, http.StatusBadRequest, "ValidationError")
}

func TestAuth_MeLogoutRefresh(t *testing.T) {
	a := newTestApp(t)
	reg := do(t, a, "POST", "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, reg.status)
	token := reg.data()["token"].(string)
	refresh := reg.data()["refreshToken"].(string)

	assertError(t, do(t, a, "GET", "/auth/me", nil, ""), http.StatusUnauthorized, "AuthenticationError")

	me := do(t, a, "GET", "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, me.status)
	assert.Equal(t, "a@b.com", me.data()["user"].(map[string]any)["email"])

	assertError(t, do(t, a, "POST", "/auth/refresh", map[string]any{"refreshToken": token}, ""),
		http.StatusUnauthorized, "AuthenticationError")
	assertError(t, do(t, a, "POST", "/auth/refresh", map[string]any{}, ""),
		http.StatusBadRequest, "ValidationError")

	rotated := do(t, a, "POST", "/auth/refresh", map[string]any{"refreshToken": refresh}, "")
	require.Equal(t, http.StatusOK, rotated.status, string(rotated.raw))
	newToken := rotated.data()["token"].(string)
	newRefresh := rotated.data()["refreshToken"].(string)
	assertError(t, do(t, a, "POST", "/auth/refresh", map[string]any{"refreshToken": refresh}, ""),
		http.StatusUnauthorized, "AuthenticationError")

	out := do(t, a, "POST", "/auth/logout", map[string]any{"refreshToken": newRefresh}, newToken)
	require.Equal(t, http.StatusOK, out.status)
	assert.Equal(t, true, out.payload["success"])
	assert.Equal(t, "logged out", out.payload["message"])

	assertError(t, do(t, a, "GET", "/auth/me", nil, newToken), http.StatusUnauthorized, "AuthenticationError")
	assertError(t, do(t, a, "POST", "/auth/refresh", map[string]any{"refreshToken": newRefresh}, ""),
		http.StatusUnauthorized, "AuthenticationError")

	anon := do(t, a, "POST", "/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, anon.status)
	garbage := do(t, a, "POST", "/auth/logout", nil, "garbage")
	assert.Equal(t, http.StatusOK, garbage.status)
}

func TestAuth_RedisRevocation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := New(testConfig(), zap.NewNop(), Dependencies{Revocations: auth.NewRedisRevocationStore(client)})
	reg := do(t, a, "POST", "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, reg.status)
	token := reg.data()["token"].(string)

	require.Equal(t, http.StatusOK, do(t, a, "POST", "/auth/logout", nil, token).status)
	assert.Len(t, mr.Keys(), 1)
	assertError(t, do(t, a, "GET", "/auth/me", nil, token), http.StatusUnauthorized, "AuthenticationError")
}

func TestAuth_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{AuthRPS: 0.001, AuthBurst: 2}
	a := New(cfg, zap.NewNop(), Dependencies{})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, a, "POST", "/auth/logout", nil, "").status)
	}
	limited := do(t, a, "POST", "/auth/logout", nil, "")
	assertError(t, limited, http.StatusTooManyRequests, "RateLimitError")
	assert.Equal(t, "1", limited.header.Get("Retry-After"))

	// the issue surface is not limited
	assert.Equal(t, http.StatusOK, do(t, a, "GET", "/issues", nil, "").status)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	live := do(t, a, "GET", "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, live.status)
	assert.Equal(t, "alive", live.payload["status"])

	ready := do(t, a, "GET", "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, ready.status)
	assert.Equal(t, "ready", ready.payload["status"])

	do(t, a, "GET", "/unknown-path", nil, "")
	metrics := do(t, a, "GET", "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, metrics.status)
	assert.Contains(t, string(metrics.raw), "issuetracker_http_requests_total")
	assert.Contains(t, string(metrics.raw), `issuetracker_http_errors_total{code="NotFoundError",method="GET",route="unmatched"} 1`)
}
