package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

// ErrNoChoicesInResponse is returned when the API response has no choices
var ErrNoChoicesInResponse = errors.New("no choices in response")

// APIError represents an error from the AI provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter *time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsOverloaded reports whether err means the upstream model is temporarily
// unavailable: an HTTP 503, or the per-attempt deadline firing.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}

	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		return sdkErr.StatusCode == http.StatusServiceUnavailable
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusServiceUnavailable
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// ExtractAPIError converts an SDK error into an APIError, or returns nil
func ExtractAPIError(err error) *APIError {
	var sdkErr *openai.Error
	if !errors.As(err, &sdkErr) {
		return nil
	}
	apiErr := &APIError{
		StatusCode: sdkErr.StatusCode,
		Message:    sdkErr.Message,
		Type:       sdkErr.Type,
		Code:       sdkErr.Code,
	}
	if sdkErr.Response != nil {
		if secs := sdkErr.Response.Header.Get("Retry-After"); secs != "" {
			if d, perr := time.ParseDuration(secs + "s"); perr == nil {
				apiErr.RetryAfter = &d
			}
		}
	}
	return apiErr
}
