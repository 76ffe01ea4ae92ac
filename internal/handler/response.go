package handler

import (
	"encoding/json"
	"net/http"

	"github.com/matthieu-foucault/metabase/internal/middleware"
)

// ErrorResponse is the JSON body returned for every non-2xx response.
// RequestID lets a caller correlate a failed compile with the server's
// own logs without matching on timestamps.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}
