package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyUserMetrics is the per-user calendar day bucket
type DailyUserMetrics struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	Date                  time.Time `json:"date"`
	RepliesCompleted      int       `json:"replies_completed"`
	StressLevel           *float64  `json:"stress_level,omitempty"`
	CognitiveLoadTLX      *float64  `json:"cognitive_load_tlx,omitempty"`
	MobileReplies         int       `json:"mobile_replies"`
	DraftAbandonmentCount int       `json:"draft_abandonment_count"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// MetricsDay truncates t to UTC midnight, the key of a daily metrics row
func MetricsDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// StatsPeriod is the rollup window selector
type StatsPeriod string

const (
	StatsPeriod7Days  StatsPeriod = "7days"
	StatsPeriod30Days StatsPeriod = "30days"
)

// Days returns the window length, or 0 for an unknown period
func (p StatsPeriod) Days() int {
	switch p {
	case StatsPeriod7Days:
		return 7
	case StatsPeriod30Days:
		return 30
	default:
		return 0
	}
}

// DefaultEmailCheckFrequency is reported until per-user tracking exists
const DefaultEmailCheckFrequency = 18

// UserStats is the rollup over a stats window
type UserStats struct {
	AvgReplyTime         float64     `json:"avgReplyTime"`
	ReplyCompletionRate  float64     `json:"replyCompletionRate"`
	AvgStressLevel       float64     `json:"avgStressLevel"`
	AvgCognitiveLoad     float64     `json:"avgCognitiveLoad"`
	MobileReplyRate      float64     `json:"mobileReplyRate"`
	DraftAbandonmentRate float64     `json:"draftAbandonmentRate"`
	EmailCheckFrequency  int         `json:"emailCheckFrequency"`
	Period               StatsPeriod `json:"period"`
}
