package drafting

import (
	"context"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/models"
)

// ToneHistoryWindow is the number of recent sent drafts used to infer a recipient's tone
const ToneHistoryWindow = 3

// RecentEmail summarizes a sent draft for the extension
type RecentEmail struct {
	Subject string      `json:"subject"`
	Tone    models.Tone `json:"tone"`
	Date    time.Time   `json:"date"`
}

// DraftContext is what the browser extension needs before composing
type DraftContext struct {
	RecipientToneHistory models.Tone        `json:"recipientToneHistory"`
	UserToneProfile      models.ToneProfile `json:"userToneProfile"`
	RecentEmails         []RecentEmail      `json:"recentEmails"`
}

// ContextService serves extension lookups over the ledger
type ContextService struct {
	logs database.ConversionLogRepositoryInterface
}

// NewContextService creates a ContextService
func NewContextService(logs database.ConversionLogRepositoryInterface) *ContextService {
	return &ContextService{logs: logs}
}

// DraftContext returns the user's tone profile and how they recently wrote to recipient
func (s *ContextService) DraftContext(ctx context.Context, user *models.User, recipient string) (*DraftContext, error) {
	logs, err := s.logs.RecentSentToRecipient(ctx, user.ID, recipient, ToneHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient history: %w", err)
	}

	recent := make([]RecentEmail, 0, len(logs))
	for _, l := range logs {
		recent = append(recent, RecentEmail{Subject: l.Subject, Tone: l.DetectedTone, Date: l.CreatedAt})
	}

	return &DraftContext{
		RecipientToneHistory: ToneMode(logs),
		UserToneProfile:      user.ToneProfile,
		RecentEmails:         recent,
	}, nil
}

// ToneMode returns the most frequent tone in logs, which are ordered newest
// first. Ties go to the tone seen most recently; no logs yields neutral.
func ToneMode(logs []*models.ConversionLog) models.Tone {
	counts := make(map[models.Tone]int, 3)
	var order []models.Tone
	for _, l := range logs {
		if !l.DetectedTone.IsValid() {
			continue
		}
		if counts[l.DetectedTone] == 0 {
			order = append(order, l.DetectedTone)
		}
		counts[l.DetectedTone]++
	}

	best, bestCount := models.ToneNeutral, 0
	for _, t := range order {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}

// OAuthStatus reports whether the stored Google credential is unexpired
type OAuthStatus struct {
	IsValid   bool  `json:"isValid"`
	ExpiresIn int64 `json:"expiresIn"`
}

// CredentialStatus computes OAuthStatus at now. ExpiresIn is in milliseconds
// and goes negative once the credential has expired.
func CredentialStatus(user *models.User, now time.Time) OAuthStatus {
	if !user.HasMailCredential() || user.TokenExpiresAt == nil {
		return OAuthStatus{}
	}
	remaining := user.TokenExpiresAt.Sub(now).Milliseconds()
	return OAuthStatus{IsValid: remaining > 0, ExpiresIn: remaining}
}
