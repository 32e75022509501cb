package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	mocks "github.com/novellms/lms-gateway/internal/mocks/auth"
	"github.com/novellms/lms-gateway/internal/service"
)

type routerFixture struct {
	backend *mocks.StubBackend
	roles   *mocks.StubRoleSource
	handler http.Handler
}

func newRouterFixture(t *testing.T, identity, password string, role domainauth.Role) *routerFixture {
	t.Helper()
	backend := mocks.NewStubBackend(identity, password)
	roles := &mocks.StubRoleSource{Roles: map[string]domainauth.Role{identity: role}}
	resolver := service.NewPermissionResolver(service.PermissionResolverOptions{
		Source: roles,
		Cache:  mocks.NewMemoryPermissionCache(),
	})
	auth := service.NewAuthService(service.AuthServiceOptions{
		Backend:   backend,
		Directory: backend,
		Resolver:  resolver,
		Sessions:  mocks.NewMemorySessionStore(),
	})
	handler := NewRouter(RouterServices{
		Auth:       auth,
		Progress:   service.NewProgressService(service.ProgressServiceOptions{Source: backend, Directory: backend}),
		Navigation: service.NewNavigationService(service.NavigationServiceOptions{}),
	})
	return &routerFixture{backend: backend, roles: roles, handler: handler}
}

func (f *routerFixture) login(t *testing.T, usr, pwd string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body := strings.NewReader(`{"usr":"` + usr + `","pwd":"` + pwd + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func TestLoginEndpoint_Success(t *testing.T) {
	f := newRouterFixture(t, "editor@example.com", "pw", domainauth.RoleContentEditor)

	rec, payload := f.login(t, "editor@example.com", "pw")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/modules", payload["redirect_to"])
	assert.Equal(t, "content_editor", payload["role"])

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestLoginEndpoint_InvalidCredentials(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleStudent)

	rec, payload := f.login(t, "user@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", payload["error"])
	assert.Nil(t, sessionCookie(rec))
}

func TestLoginEndpoint_MissingFields(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleStudent)

	rec, payload := f.login(t, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_credentials", payload["error"])
}

func TestLoginEndpoint_NoRole(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleNone)

	rec, payload := f.login(t, "user@example.com", "pw")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "no_role_assigned", payload["error"])
	assert.Equal(t, "/login?reason=insufficient-permissions", payload["redirect_to"])
	assert.Nil(t, sessionCookie(rec))
}

func TestLoginEndpoint_RateLimited(t *testing.T) {
	backend := mocks.NewStubBackend("user@example.com", "pw")
	roles := &mocks.StubRoleSource{Roles: map[string]domainauth.Role{"user@example.com": domainauth.RoleStudent}}
	resolver := service.NewPermissionResolver(service.PermissionResolverOptions{
		Source: roles,
		Cache:  mocks.NewMemoryPermissionCache(),
	})
	auth := service.NewAuthService(service.AuthServiceOptions{
		Backend:   backend,
		Directory: backend,
		Resolver:  resolver,
		Sessions:  mocks.NewMemorySessionStore(),
	})
	handler := NewRouter(RouterServices{
		Auth:         auth,
		LoginLimiter: NewLoginLimiter(1, 2),
	})
	f := &routerFixture{backend: backend, roles: roles, handler: handler}

	// Burst of 2 is admitted, the third attempt is throttled.
	for i := 0; i < 2; i++ {
		rec, _ := f.login(t, "user@example.com", "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, payload := f.login(t, "user@example.com", "wrong")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", payload["error"])
}

func TestStatusEndpoint(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleStudent)

	// Anonymous
	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["authenticated"])

	// Authenticated
	loginRec, _ := f.login(t, "user@example.com", "pw")
	cookie := sessionCookie(loginRec)
	require.NotNil(t, cookie)

	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, true, payload["authenticated"])
	user := payload["user"].(map[string]any)
	assert.Equal(t, "user@example.com", user["id"])
	assert.Equal(t, "student", user["role"])
}

func TestLogoutEndpoint(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleStudent)

	loginRec, _ := f.login(t, "user@example.com", "pw")
	cookie := sessionCookie(loginRec)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The session cookie is cleared
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The old session no longer authenticates
	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["authenticated"])
}

func TestLogoutEndpoint_BrowserRedirect(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleStudent)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSafeRedirectPath(t *testing.T) {
	assert.Equal(t, "/", safeRedirectPath(""))
	assert.Equal(t, "/", safeRedirectPath("https://evil.example.com/"))
	assert.Equal(t, "/", safeRedirectPath("//evil.example.com/"))
	assert.Equal(t, "/dashboard", safeRedirectPath("/dashboard"))
}
