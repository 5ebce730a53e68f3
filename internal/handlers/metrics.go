package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatsReader reads the aggregated stats for a user
type StatsReader interface {
	GetStats(ctx context.Context, userID uuid.UUID, period models.StatsPeriod) (*models.UserStats, error)
}

// SurveyWriter stores a self-reported survey
type SurveyWriter interface {
	Record(ctx context.Context, userID uuid.UUID, survey metrics.Survey) error
}

var (
	_ StatsReader  = (*metrics.Rollup)(nil)
	_ SurveyWriter = (*metrics.SurveyRecorder)(nil)
)

// MetricsHandler serves user stats and surveys
type MetricsHandler struct {
	stats   StatsReader
	surveys SurveyWriter
	logger  *zap.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(stats StatsReader, surveys SurveyWriter, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{stats: stats, surveys: surveys, logger: logger}
}

// RegisterRoutes registers metrics routes. The router should already have the /api/v1/metrics prefix.
func (h *MetricsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/user-stats", h.GetUserStats).Methods("GET")
	r.HandleFunc("/log-survey", h.LogSurvey).Methods("POST")
}

// GetUserStats handles GET /api/v1/metrics/user-stats
func (h *MetricsHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}

	period := models.StatsPeriod7Days
	if raw := r.URL.Query().Get("period"); raw != "" {
		period = models.StatsPeriod(raw)
		if period != models.StatsPeriod7Days && period != models.StatsPeriod30Days {
			respondJSONError(w, http.StatusBadRequest, string(apperr.KindInvalidInput), "period must be 7days or 30days")
			return
		}
	}

	stats, err := h.stats.GetStats(r.Context(), user.ID, period)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// LogSurveyRequest is the body of POST /metrics/log-survey
type LogSurveyRequest struct {
	StressLevel      *float64 `json:"stressLevel,omitempty" validate:"omitempty,min=0,max=10"`
	CognitiveLoadTLX *float64 `json:"cognitiveLoadTLX,omitempty" validate:"omitempty,min=0,max=100"`
	Date             string   `json:"date,omitempty"`
}

// LogSurvey handles POST /api/v1/metrics/log-survey
func (h *MetricsHandler) LogSurvey(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}

	var req LogSurveyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	survey := metrics.Survey{StressLevel: req.StressLevel, CognitiveLoadTLX: req.CognitiveLoadTLX}
	if req.Date != "" {
		day, err := parseSurveyDate(req.Date)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, string(apperr.KindInvalidInput), "date must be YYYY-MM-DD or RFC3339")
			return
		}
		survey.Date = &day
	}

	if err := h.surveys.Record(r.Context(), user.ID, survey); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func parseSurveyDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
