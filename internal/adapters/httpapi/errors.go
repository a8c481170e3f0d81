package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Messages returned to clients for business rejections and auth failures.
const (
	msgAlreadyRegistered  = "Mobile phone is already registered!"
	msgInvalidCredentials = "Invalid credentials!"
	msgPassNotFound       = "Pass does not exist!"
	msgMissingAuth        = "Missing authorization!"
	msgInvalidAuthFormat  = "Invalid authorization format!"
	msgUnauthorized       = "Unauthorized!"
	msgIdempotencyReuse   = "Idempotency key reuse with different payload!"
	msgIdempotencyBusy    = "A request with this idempotency key is still in progress!"
	msgInvalidBody        = "Request body is not valid JSON!"
	msgInternal           = "Internal server error!"
)

type errorResponse struct {
	Errors    []string `json:"errors"`
	RequestID string   `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, r *http.Request, status int, messages ...string) {
	writeJSON(w, status, errorResponse{
		Errors:    messages,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeInternal logs err with the request id and answers 500 without any detail.
func writeInternal(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.ErrorContext(r.Context(), "request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	writeErrors(w, r, http.StatusInternalServerError, msgInternal)
}
