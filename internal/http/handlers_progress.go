package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/service"
)

// ProgressServiceInterface defines the interface for progress operations.
type ProgressServiceInterface interface {
	Dashboard(ctx context.Context, session domainauth.Session) (*service.Summary, error)
}

// ProgressHandlers provides HTTP handlers for progress summaries.
type ProgressHandlers struct {
	Svc    ProgressServiceInterface
	Logger *slog.Logger
}

func (h *ProgressHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Summary returns the logged-in member's dashboard summary.
// GET /api/progress/summary.
func (h *ProgressHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	session, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	summary, err := h.Svc.Dashboard(r.Context(), *session)
	if err != nil {
		h.logger().WarnContext(r.Context(), "progress summary failed", "error", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
