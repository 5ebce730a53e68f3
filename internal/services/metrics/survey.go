package metrics

import (
	"context"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/google/uuid"
)

// Survey is a self-reported wellbeing sample for one day
type Survey struct {
	StressLevel      *float64
	CognitiveLoadTLX *float64
	// Date defaults to today
	Date *time.Time
}

// SurveyRecorder stores surveys into the daily buckets
type SurveyRecorder struct {
	metrics database.DailyMetricsRepositoryInterface
	now     func() time.Time
}

// NewSurveyRecorder creates a SurveyRecorder
func NewSurveyRecorder(metrics database.DailyMetricsRepositoryInterface) *SurveyRecorder {
	return &SurveyRecorder{metrics: metrics, now: time.Now}
}

// Record upserts the survey into its day. At least one value is required.
func (s *SurveyRecorder) Record(ctx context.Context, userID uuid.UUID, survey Survey) error {
	if survey.StressLevel == nil && survey.CognitiveLoadTLX == nil {
		return apperr.New(apperr.KindInvalidInput, "stressLevel or cognitiveLoadTLX is required", nil)
	}
	day := s.now()
	if survey.Date != nil {
		day = *survey.Date
	}
	return s.metrics.UpsertSurvey(ctx, userID, day, survey.StressLevel, survey.CognitiveLoadTLX)
}
