package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	lmserrors "github.com/novellms/lms-gateway/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteDomainError maps a service error to its HTTP status and error code.
func WriteDomainError(w http.ResponseWriter, err error) {
	WriteError(w, ErrorParams{Code: statusForError(err), ErrCode: string(lmserrors.Code(err)), Err: err})
}

// statusForError maps error taxonomy codes to HTTP status codes.
func statusForError(err error) int {
	switch {
	case lmserrors.IsInvalidCredentials(err):
		return http.StatusUnauthorized
	case lmserrors.IsSessionExpired(err):
		return http.StatusUnauthorized
	case lmserrors.IsNoRoleAssigned(err):
		return http.StatusForbidden
	case lmserrors.IsValidation(err):
		return http.StatusBadRequest
	case lmserrors.IsNotFound(err):
		return http.StatusNotFound
	case lmserrors.IsTimeout(err):
		return http.StatusGatewayTimeout
	case lmserrors.IsNetwork(err), lmserrors.IsPermissionResolution(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
