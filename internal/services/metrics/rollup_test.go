package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	logs     []*models.ConversionLog
	err      error
	gotSince time.Time
}

func (s *stubLedger) Create(context.Context, *models.ConversionLog) error { return nil }
func (s *stubLedger) GetByID(context.Context, uuid.UUID) (*models.ConversionLog, error) {
	return nil, nil
}
func (s *stubLedger) ClaimSend(context.Context, uuid.UUID, uuid.UUID) error   { return nil }
func (s *stubLedger) ReleaseSend(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubLedger) MarkSent(context.Context, uuid.UUID, uuid.UUID, models.SentUpdate) error {
	return nil
}
func (s *stubLedger) ListByUserSince(_ context.Context, _ uuid.UUID, since time.Time) ([]*models.ConversionLog, error) {
	s.gotSince = since
	return s.logs, s.err
}
func (s *stubLedger) RecentSentToRecipient(context.Context, uuid.UUID, string, int) ([]*models.ConversionLog, error) {
	return nil, nil
}

type stubMetrics struct {
	rows      []*models.DailyUserMetrics
	err       error
	surveyDay time.Time
	stress    *float64
	load      *float64
}

func (s *stubMetrics) IncrementReplies(context.Context, uuid.UUID, time.Time) error { return nil }
func (s *stubMetrics) UpsertSurvey(_ context.Context, _ uuid.UUID, day time.Time, stress, load *float64) error {
	s.surveyDay, s.stress, s.load = day, stress, load
	return s.err
}
func (s *stubMetrics) ListByUserSince(context.Context, uuid.UUID, time.Time) ([]*models.DailyUserMetrics, error) {
	return s.rows, s.err
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestCompute(t *testing.T) {
	t.Parallel()

	logs := []*models.ConversionLog{
		{SentSuccessfully: true, ReplyTimeMs: i64(1000)},
		{SentSuccessfully: true, ReplyTimeMs: i64(3000)},
		{SentSuccessfully: true, ReplyTimeMs: i64(0)},
		{SentSuccessfully: false},
	}
	rows := []*models.DailyUserMetrics{
		{StressLevel: f64(4), CognitiveLoadTLX: f64(60), MobileReplies: 1},
		{StressLevel: f64(6), MobileReplies: 2},
		{},
	}

	got := Compute(logs, rows, models.StatsPeriod7Days)
	assert.Equal(t, models.UserStats{
		AvgReplyTime:         2000,
		ReplyCompletionRate:  75,
		AvgStressLevel:       5,
		AvgCognitiveLoad:     60,
		MobileReplyRate:      100,
		DraftAbandonmentRate: 25,
		EmailCheckFrequency:  18,
		Period:               models.StatsPeriod7Days,
	}, got)
}

func TestCompute_ZeroDenominators(t *testing.T) {
	t.Parallel()

	got := Compute(nil, nil, models.StatsPeriod30Days)
	assert.Zero(t, got.AvgReplyTime)
	assert.Zero(t, got.ReplyCompletionRate)
	assert.Zero(t, got.AvgStressLevel)
	assert.Zero(t, got.AvgCognitiveLoad)
	assert.Zero(t, got.MobileReplyRate)
	assert.Zero(t, got.DraftAbandonmentRate)
	assert.Equal(t, models.DefaultEmailCheckFrequency, got.EmailCheckFrequency)

	unsentOnly := Compute([]*models.ConversionLog{{}}, []*models.DailyUserMetrics{{MobileReplies: 3}}, models.StatsPeriod7Days)
	assert.Zero(t, unsentOnly.MobileReplyRate, "no sent entries means no mobile rate")
	assert.Equal(t, float64(100), unsentOnly.DraftAbandonmentRate)
}

func TestRollup_GetStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{logs: []*models.ConversionLog{{SentSuccessfully: true, ReplyTimeMs: i64(500)}}}
	r := NewRollup(ledger, &stubMetrics{})
	r.now = func() time.Time { return now }

	got, err := r.GetStats(context.Background(), uuid.New(), models.StatsPeriod30Days)
	require.NoError(t, err)
	assert.Equal(t, float64(100), got.ReplyCompletionRate)
	assert.Equal(t, now.AddDate(0, 0, -30), ledger.gotSince)
	assert.Equal(t, models.StatsPeriod30Days, got.Period)
}

func TestRollup_GetStats_Errors(t *testing.T) {
	t.Parallel()

	r := NewRollup(&stubLedger{}, &stubMetrics{})
	_, err := r.GetStats(context.Background(), uuid.New(), "90days")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	r = NewRollup(&stubLedger{}, &stubMetrics{err: errors.New("db down")})
	_, err = r.GetStats(context.Background(), uuid.New(), models.StatsPeriod7Days)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestSurveyRecorder_Record(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	m := &stubMetrics{}
	s := NewSurveyRecorder(m)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Record(context.Background(), uuid.New(), Survey{StressLevel: f64(3)}))
	assert.Equal(t, now, m.surveyDay)
	assert.Equal(t, 3.0, *m.stress)
	assert.Nil(t, m.load)

	day := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(context.Background(), uuid.New(), Survey{CognitiveLoadTLX: f64(55), Date: &day}))
	assert.Equal(t, day, m.surveyDay)

	err := s.Record(context.Background(), uuid.New(), Survey{})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}
