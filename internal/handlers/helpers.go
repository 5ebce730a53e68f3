package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/request"
	"github.com/RedRangerWentWild/IITR1/internal/validation"
	"go.uber.org/zap"
)

// OverloadRetryAfterSeconds is sent as Retry-After when the model is overloaded
const OverloadRetryAfterSeconds = 5

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	respondBody(w, status, map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondBody sends body as is, for routes whose clients read a flat object
func respondBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage caps client-facing messages
func sanitizeErrorMessage(message string) string {
	runes := []rune(message)
	if len(runes) > maxErrorMessageLength {
		return string(runes[:maxErrorMessageLength]) + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSONErrorDetails(w, status, errorType, message, nil)
}

func respondJSONErrorDetails(w http.ResponseWriter, status int, errorType, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(details) > 0 {
		response["details"] = details
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondAppError maps err to its status. Errors without a kind are
// logged and reported as a generic internal error.
func respondAppError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error("request_failed",
			zap.String("request_id", request.RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, string(apperr.KindInternal), "An unexpected error occurred")
		return
	}

	status := apperr.HTTPStatus(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Warn("request_failed",
			zap.String("request_id", request.RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.String("kind", string(appErr.Kind)),
			zap.Error(err),
		)
	}

	var details map[string]any
	switch appErr.Kind {
	case apperr.KindConversionOverloaded:
		w.Header().Set("Retry-After", strconv.Itoa(OverloadRetryAfterSeconds))
	case apperr.KindInvalidRecipient:
		details = map[string]any{"recipient": appErr.Detail}
	}
	respondJSONErrorDetails(w, status, string(appErr.Kind), appErr.Reason, details)
}

// decodeJSON reads a JSON body into dst and validates it. On false the
// error response has already been written. An empty body decodes to the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, string(apperr.KindInvalidInput), "Invalid JSON body")
		return false
	}
	if err := validation.Validate.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, string(apperr.KindInvalidInput), validation.FormatErrors(err))
		return false
	}
	return true
}
