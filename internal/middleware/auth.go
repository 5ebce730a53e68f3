package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/request"
	"github.com/RedRangerWentWild/IITR1/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier validates a session token
type TokenVerifier interface {
	Verify(token string) (*models.SessionClaims, error)
}

// UserLoader loads the user named by a verified token
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates Bearer session tokens
func Auth(tokens TokenVerifier, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "unauthenticated", "Missing Authorization header", logger)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "unauthenticated", "Invalid Authorization header format", logger)
				return
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondErrorJSON(w, r, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token", logger)
				return
			}

			ctx := r.Context()
			user, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					respondErrorJSON(w, r, http.StatusUnauthorized, "unauthenticated", "Unknown user", logger)
					return
				}
				logger.Error("auth_user_lookup_failed",
					zap.String("user_id", claims.UserID.String()),
					zap.Error(err),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "internal", "Database error", logger)
				return
			}

			ctx = request.WithUser(ctx, user)
			ctx = ai.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
