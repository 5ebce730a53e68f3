package database

import (
	"context"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines the user operations the services depend on
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateMailCredential(ctx context.Context, id uuid.UUID, cred models.MailCredential) error
}

// ConversionLogRepositoryInterface defines the ledger operations
// This interface enables better testability by allowing mock implementations
type ConversionLogRepositoryInterface interface {
	Create(ctx context.Context, log *models.ConversionLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ConversionLog, error)
	ClaimSend(ctx context.Context, id, userID uuid.UUID) error
	ReleaseSend(ctx context.Context, id, userID uuid.UUID) error
	MarkSent(ctx context.Context, id, userID uuid.UUID, update models.SentUpdate) error
	ListByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ConversionLog, error)
	RecentSentToRecipient(ctx context.Context, userID uuid.UUID, recipient string, limit int) ([]*models.ConversionLog, error)
}

// DailyMetricsRepositoryInterface defines the daily metrics operations
type DailyMetricsRepositoryInterface interface {
	IncrementReplies(ctx context.Context, userID uuid.UUID, at time.Time) error
	UpsertSurvey(ctx context.Context, userID uuid.UUID, day time.Time, stressLevel, cognitiveLoad *float64) error
	ListByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.DailyUserMetrics, error)
}

// RatelimitConfigRepositoryInterface defines the rate limit config reads used by the reloader
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface            = (*UserRepository)(nil)
	_ ConversionLogRepositoryInterface   = (*ConversionLogRepository)(nil)
	_ DailyMetricsRepositoryInterface    = (*DailyMetricsRepository)(nil)
	_ RatelimitConfigRepositoryInterface = (*RatelimitConfigRepository)(nil)
)
