package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/novellms/lms-gateway/internal/domain/navigation"
	"github.com/novellms/lms-gateway/internal/service"
)

// NavigationHandlers provides HTTP handlers for the per-session visit history.
type NavigationHandlers struct {
	Svc *service.NavigationService
}

type visitRequest struct {
	Path     string `json:"path"`
	ModuleID string `json:"module_id,omitempty"`
	Context  string `json:"context,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Visit records a navigation entry for the current session.
// POST /api/navigation/visit.
func (h *NavigationHandlers) Visit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req visitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.Visit(sessionID, navigation.Entry{
		Path:     req.Path,
		ModuleID: req.ModuleID,
		Context:  navigation.Context(req.Context),
		Search:   req.Search,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Recent returns the most recent visits, newest first.
// GET /api/navigation/recent?limit=N.
func (h *NavigationHandlers) Recent(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	limit := navigation.DefaultCapacity
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries := h.Svc.Recent(sessionID, limit)
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// LastModule returns the most recently visited module, if any.
// GET /api/navigation/last-module.
func (h *NavigationHandlers) LastModule(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	entry, found := h.Svc.LastModule(sessionID)
	if !found {
		WriteJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"found": true, "entry": entry})
}

// sessionID extracts the session cookie value; the RequireAuth middleware has
// already validated it upstream.
func (h *NavigationHandlers) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return "", false
	}
	return cookie.Value, true
}
