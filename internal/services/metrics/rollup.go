// Package metrics computes behavioral statistics from the conversion ledger
// and the daily metrics buckets.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Rollup reads a user's window and aggregates it. It holds no state of its own.
type Rollup struct {
	logs    database.ConversionLogRepositoryInterface
	metrics database.DailyMetricsRepositoryInterface
	now     func() time.Time
}

// NewRollup creates a Rollup
func NewRollup(logs database.ConversionLogRepositoryInterface, metrics database.DailyMetricsRepositoryInterface) *Rollup {
	return &Rollup{logs: logs, metrics: metrics, now: time.Now}
}

// GetStats aggregates the user's activity over the last period
func (r *Rollup) GetStats(ctx context.Context, userID uuid.UUID, period models.StatsPeriod) (*models.UserStats, error) {
	days := period.Days()
	if days == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("invalid period %q (must be '7days' or '30days')", period), nil)
	}
	since := r.now().AddDate(0, 0, -days)

	var (
		logs []*models.ConversionLog
		rows []*models.DailyUserMetrics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = r.logs.ListByUserSince(gctx, userID, since)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = r.metrics.ListByUserSince(gctx, userID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats window: %w", err)
	}

	stats := Compute(logs, rows, period)
	return &stats, nil
}

// Compute derives UserStats. Every rate whose denominator is zero is 0.
func Compute(logs []*models.ConversionLog, rows []*models.DailyUserMetrics, period models.StatsPeriod) models.UserStats {
	total := len(logs)
	sent := 0
	var replySum float64
	replyCount := 0
	for _, l := range logs {
		if !l.SentSuccessfully {
			continue
		}
		sent++
		if l.ReplyTimeMs != nil && *l.ReplyTimeMs > 0 {
			replySum += float64(*l.ReplyTimeMs)
			replyCount++
		}
	}

	var stressSum, loadSum float64
	stressCount, loadCount, mobile := 0, 0, 0
	for _, m := range rows {
		if m.StressLevel != nil {
			stressSum += *m.StressLevel
			stressCount++
		}
		if m.CognitiveLoadTLX != nil {
			loadSum += *m.CognitiveLoadTLX
			loadCount++
		}
		mobile += m.MobileReplies
	}

	return models.UserStats{
		AvgReplyTime:         ratio(replySum, replyCount),
		ReplyCompletionRate:  percent(sent, total),
		AvgStressLevel:       ratio(stressSum, stressCount),
		AvgCognitiveLoad:     ratio(loadSum, loadCount),
		MobileReplyRate:      percent(mobile, sent),
		DraftAbandonmentRate: percent(total-sent, total),
		EmailCheckFrequency:  models.DefaultEmailCheckFrequency,
		Period:               period,
	}
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
