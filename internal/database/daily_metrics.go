package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
)

// DailyMetricsRepository handles the per-user daily metrics buckets.
// Every write keys on models.MetricsDay so a user has at most one row per UTC day.
type DailyMetricsRepository struct {
	db *DB
}

// NewDailyMetricsRepository creates a new daily metrics repository
func NewDailyMetricsRepository(db *DB) *DailyMetricsRepository {
	return &DailyMetricsRepository{db: db}
}

// IncrementReplies adds one completed reply to the bucket containing at
func (r *DailyMetricsRepository) IncrementReplies(ctx context.Context, userID uuid.UUID, at time.Time) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_user_metrics (user_id, date, replies_completed, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (user_id, date) DO UPDATE SET
			replies_completed = daily_user_metrics.replies_completed + 1,
			updated_at = EXCLUDED.updated_at
	`, userID, models.MetricsDay(at), now)
	if err != nil {
		return fmt.Errorf("failed to increment replies completed: %w", err)
	}
	return nil
}

// UpsertSurvey records the self-reported stress and cognitive load for the day.
// Nil values leave any stored value untouched.
func (r *DailyMetricsRepository) UpsertSurvey(ctx context.Context, userID uuid.UUID, day time.Time, stressLevel, cognitiveLoad *float64) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_user_metrics (user_id, date, stress_level, cognitive_load_tlx, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, date) DO UPDATE SET
			stress_level = COALESCE(EXCLUDED.stress_level, daily_user_metrics.stress_level),
			cognitive_load_tlx = COALESCE(EXCLUDED.cognitive_load_tlx, daily_user_metrics.cognitive_load_tlx),
			updated_at = EXCLUDED.updated_at
	`, userID, models.MetricsDay(day), stressLevel, cognitiveLoad, now)
	if err != nil {
		return fmt.Errorf("failed to upsert survey metrics: %w", err)
	}
	return nil
}

// ListByUserSince returns the user's buckets whose day is on or after the day containing since
func (r *DailyMetricsRepository) ListByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.DailyUserMetrics, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, replies_completed, stress_level, cognitive_load_tlx,
			mobile_replies, draft_abandonment_count, created_at, updated_at
		FROM daily_user_metrics
		WHERE user_id = $1 AND date >= $2
		ORDER BY date ASC
	`, userID, models.MetricsDay(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.DailyUserMetrics
	for rows.Next() {
		m := &models.DailyUserMetrics{}
		var stress, load sql.NullFloat64
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Date,
			&m.RepliesCompleted,
			&stress,
			&load,
			&m.MobileReplies,
			&m.DraftAbandonmentCount,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily metrics: %w", err)
		}
		if stress.Valid {
			m.StressLevel = &stress.Float64
		}
		if load.Valid {
			m.CognitiveLoadTLX = &load.Float64
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily metrics: %w", err)
	}
	return out, nil
}
