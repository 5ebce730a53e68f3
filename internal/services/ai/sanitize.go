package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/RedRangerWentWild/IITR1/internal/logger"
	"github.com/RedRangerWentWild/IITR1/internal/request"
	"github.com/google/uuid"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

const (
	// MaxPreviewLength is the maximum length for preview strings in logs
	MaxPreviewLength = 200
	// RedactedValue is the value used to replace sensitive data
	RedactedValue = "[REDACTED]"
)

// WithUserID attaches the acting user's ID for log correlation
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, id)
}

// ExtractUserID extracts a user ID from context if available
func ExtractUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDContextKey).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

// ExtractRequestID extracts the request correlation ID from context if available
func ExtractRequestID(ctx context.Context) string {
	return request.RequestIDFromContext(ctx)
}

// SanitizeAPIKey sanitizes an API key for logging
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// SanitizePrompt creates a safe preview of a prompt for logging.
// fullLog raises the cap to the debug content limit.
func SanitizePrompt(prompt string, fullLog bool) string {
	return logger.SanitizeString(prompt, previewLimit(fullLog))
}

// SanitizeResponse creates a safe preview of model output for logging
func SanitizeResponse(response string, fullLog bool) string {
	return logger.SanitizeString(response, previewLimit(fullLog))
}

func previewLimit(fullLog bool) int {
	if fullLog {
		return logger.MaxDebugContentLength
	}
	return MaxPreviewLength
}

// HashUserID creates a short stable hash of a user ID for logging
func HashUserID(userID string) string {
	if userID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(hash[:])[:16]
}
