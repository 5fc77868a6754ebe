package handler

// RESPONSE HELPERS:
// Every handler sends JSON through these two functions, so all responses
// share one shape. Errors in particular always look like:
//
//	{"error": "not_found", "message": "item not found with id abc123"}
//
// which lets the frontend render a toast from any failure without caring
// which endpoint produced it.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xfsay/xmg-hall/internal/apperror"
)

// maxBodyBytes caps JSON request bodies at 64KB. The largest legal payload
// (a 500-char announcement) is a fraction of this; anything bigger is junk.
const maxBodyBytes = 64 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the first body write — once Encode
// writes, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already went out; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status code and sends it.
//
// The board returns apperror values; errors.Is walks the wrap chain so the
// mapping works no matter how many fmt.Errorf("%w") layers are on top.
// Status codes never leak into the board package — this is the only place
// domain errors and HTTP meet.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrStorage):
			status = http.StatusInternalServerError
			errorType = "storage_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — generic 500. Never echo raw internal errors to the
	// client; the message might contain file paths or other internals.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a size-capped JSON request body into dst.
// Returns a ValidationError suitable for writeError on any parse failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
