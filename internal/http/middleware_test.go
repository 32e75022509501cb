package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireRole_Hierarchy(t *testing.T) {
	cases := []struct {
		name     string
		role     domainauth.Role
		wantCode int
	}{
		{"admin covers editor routes", domainauth.RoleAdmin, http.StatusOK},
		{"editor allowed", domainauth.RoleContentEditor, http.StatusOK},
		{"student refused", domainauth.RoleStudent, http.StatusForbidden},
		{"team lead refused", domainauth.RoleTeamLead, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(t, "user@example.com", "pw", tc.role)
			loginRec, _ := f.login(t, "user@example.com", "pw")
			cookie := sessionCookie(loginRec)
			require.NotNil(t, cookie)

			rec := f.authedRequest(t, cookie, http.MethodGet, "/api/authoring/allowed", "")
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleAdmin)

	rec := f.authedRequest(t, nil, http.MethodGet, "/api/authoring/allowed", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	handler := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newRouterFixture(t, "user@example.com", "pw", domainauth.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
