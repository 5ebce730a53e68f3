package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type fakeStats struct {
	period models.StatsPeriod
	err    error
}

func (f *fakeStats) GetStats(_ context.Context, _ uuid.UUID, period models.StatsPeriod) (*models.UserStats, error) {
	f.period = period
	if f.err != nil {
		return nil, f.err
	}
	return &models.UserStats{
		AvgReplyTime:        120,
		ReplyCompletionRate: 75,
		EmailCheckFrequency: models.DefaultEmailCheckFrequency,
		Period:              period,
	}, nil
}

type fakeSurveys struct {
	got    metrics.Survey
	userID uuid.UUID
	err    error
}

func (f *fakeSurveys) Record(_ context.Context, userID uuid.UUID, survey metrics.Survey) error {
	f.userID = userID
	f.got = survey
	return f.err
}

func newMetricsRouter(h *MetricsHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/metrics").Subrouter())
	return r
}

func TestGetUserStats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantPeriod models.StatsPeriod
	}{
		{name: "default period", query: "", wantStatus: http.StatusOK, wantPeriod: models.StatsPeriod7Days},
		{name: "thirty days", query: "?period=30days", wantStatus: http.StatusOK, wantPeriod: models.StatsPeriod30Days},
		{name: "unknown period", query: "?period=90days", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stats := &fakeStats{}
			h := NewMetricsHandler(stats, &fakeSurveys{}, zap.NewNop())
			rr := httptest.NewRecorder()
			newMetricsRouter(h).ServeHTTP(rr, newTestRequest(http.MethodGet, "/api/v1/metrics/user-stats"+tt.query, nil, testUser()))

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if stats.period != tt.wantPeriod {
				t.Errorf("Expected period %s, got %s", tt.wantPeriod, stats.period)
			}
			data := decodeBody(t, rr)["data"].(map[string]any)
			if data["period"] != string(tt.wantPeriod) {
				t.Errorf("Expected period %s in body, got %v", tt.wantPeriod, data["period"])
			}
			if data["emailCheckFrequency"] != float64(models.DefaultEmailCheckFrequency) {
				t.Errorf("Unexpected emailCheckFrequency %v", data["emailCheckFrequency"])
			}
		})
	}
}

func TestGetUserStats_Unauthenticated(t *testing.T) {
	t.Parallel()

	h := NewMetricsHandler(&fakeStats{}, &fakeSurveys{}, zap.NewNop())
	rr := httptest.NewRecorder()
	newMetricsRouter(h).ServeHTTP(rr, newTestRequest(http.MethodGet, "/api/v1/metrics/user-stats", nil, nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestLogSurvey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		recordErr  error
		wantStatus int
		wantDate   *time.Time
	}{
		{
			name:       "stress only",
			body:       map[string]any{"stressLevel": 4.5},
			wantStatus: http.StatusOK,
		},
		{
			name:       "date only form",
			body:       map[string]any{"cognitiveLoadTLX": 60, "date": "2026-03-01"},
			wantStatus: http.StatusOK,
			wantDate:   ptrTime(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:       "rfc3339 form",
			body:       map[string]any{"stressLevel": 2, "date": "2026-03-01T15:04:05Z"},
			wantStatus: http.StatusOK,
			wantDate:   ptrTime(time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)),
		},
		{
			name:       "bad date",
			body:       map[string]any{"stressLevel": 2, "date": "yesterday"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "out of range",
			body:       map[string]any{"stressLevel": 11},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "nothing to record",
			body:       map[string]any{},
			recordErr:  apperr.New(apperr.KindInvalidInput, "stressLevel or cognitiveLoadTLX is required", nil),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			surveys := &fakeSurveys{err: tt.recordErr}
			h := NewMetricsHandler(&fakeStats{}, surveys, zap.NewNop())
			user := testUser()
			rr := httptest.NewRecorder()
			newMetricsRouter(h).ServeHTTP(rr, newTestRequest(http.MethodPost, "/api/v1/metrics/log-survey", tt.body, user))

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if surveys.userID != user.ID {
				t.Errorf("Expected survey for %s, got %s", user.ID, surveys.userID)
			}
			switch {
			case tt.wantDate == nil && surveys.got.Date != nil:
				t.Errorf("Expected no date, got %v", surveys.got.Date)
			case tt.wantDate != nil && (surveys.got.Date == nil || !surveys.got.Date.Equal(*tt.wantDate)):
				t.Errorf("Expected date %v, got %v", tt.wantDate, surveys.got.Date)
			}
			data := decodeBody(t, rr)["data"].(map[string]any)
			if data["success"] != true {
				t.Errorf("Expected success true, got %v", data)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
