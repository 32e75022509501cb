package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
	"github.com/novellms/lms-gateway/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, creds ports.Credentials) (*service.LoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// noRoleRedirect is where a role-less authenticated user lands.
const noRoleRedirect = "/login?reason=insufficient-permissions"

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Navigation   *service.NavigationService
	Limiter      *LoginLimiter
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Usr string `json:"usr"`
	Pwd string `json:"pwd"`
}

type loginResponse struct {
	RedirectTo string `json:"redirect_to"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
}

// Login handles the login endpoint.
// POST /auth/login with JSON {"usr": ..., "pwd": ...}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Usr == "" || req.Pwd == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_credentials",
			Err:     errors.New("usr and pwd are required"),
		})
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(req.Usr) {
		WriteError(w, ErrorParams{
			Code:    http.StatusTooManyRequests,
			ErrCode: "rate_limited",
			Err:     errors.New("too many login attempts"),
		})
		return
	}

	result, err := h.Svc.Login(r.Context(), ports.Credentials{Usr: req.Usr, Pwd: req.Pwd})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.setSessionCookie(w, r, result.Session)
	WriteJSON(w, http.StatusOK, loginResponse{
		RedirectTo: result.RedirectTo,
		FullName:   result.Session.FullName,
		Role:       string(result.Session.Role),
	})
}

// writeLoginError maps login flow failures to their HTTP shape. A submit
// while another is in flight is a conflict; a role-less user gets the
// login-screen redirect alongside the error.
func (h *AuthHandlers) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domainauth.ErrLoginInProgress) {
		WriteError(w, ErrorParams{
			Code:    http.StatusConflict,
			ErrCode: "login_in_progress",
			Err:     err,
		})
		return
	}
	if lmserrors.IsNoRoleAssigned(err) {
		WriteJSON(w, http.StatusForbidden, map[string]string{
			"error":       string(lmserrors.ErrCodeNoRoleAssigned),
			"message":     err.Error(),
			"redirect_to": noRoleRedirect,
		})
		return
	}
	if !lmserrors.IsInvalidCredentials(err) {
		h.logger().WarnContext(r.Context(), "login failed", "error", err)
	}
	WriteDomainError(w, err)
}

// Logout handles the logout endpoint.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie(sessionCookieName); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
		if h.Navigation != nil {
			h.Navigation.Drop(sessionCookie.Value)
		}
	}

	h.clearCookie(w, r, sessionCookieName)

	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	if redirectURI == "/" {
		redirectURI = "/login"
	}

	// AJAX requests get a JSON payload; regular requests redirect
	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": redirectURI,
		})
		return
	}

	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
		})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		// Session is invalid or expired, clear the cookie
		h.clearCookie(w, r, sessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":        session.Identity,
			"full_name": session.FullName,
			"role":      session.Role,
		},
		"expires_at": session.ExpiresAt,
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
