package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Progress     *service.ProgressService
	Navigation   *service.NavigationService
	LoginLimiter *LoginLimiter
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Navigation:   services.Navigation,
		Limiter:      services.LoginLimiter,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}
	registerAuthRoutes(mux, authHandlers)

	authed := RequireAuth(services.Auth)

	if services.Progress != nil {
		h := &ProgressHandlers{Svc: services.Progress, Logger: logger}
		mux.Handle("GET /api/progress/summary", authed(http.HandlerFunc(h.Summary)))
	}

	if services.Navigation != nil {
		h := &NavigationHandlers{Svc: services.Navigation}
		mux.Handle("POST /api/navigation/visit", authed(http.HandlerFunc(h.Visit)))
		mux.Handle("GET /api/navigation/recent", authed(http.HandlerFunc(h.Recent)))
		mux.Handle("GET /api/navigation/last-module", authed(http.HandlerFunc(h.LastModule)))
	}

	// Editorial surface probe: content editors and up only. The SPA uses it
	// to decide whether to show authoring entry points.
	editorOnly := RequireRole(services.Auth, domainauth.RoleContentEditor)
	mux.Handle("GET /api/authoring/allowed", editorOnly(http.HandlerFunc(authoringAllowed)))

	// Recover and Logging wrap the router at server assembly.
	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func authoringAllowed(w http.ResponseWriter, r *http.Request) {
	session, _ := GetUserSessionFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"allowed": true,
		"role":    session.Role,
	})
}
