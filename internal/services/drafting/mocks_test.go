package drafting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/ai"
	"github.com/google/uuid"
)

type mockLedger struct {
	mu         sync.Mutex
	created    []*models.ConversionLog
	createErr  error
	recentFunc func(ctx context.Context, userID uuid.UUID, recipient string, limit int) ([]*models.ConversionLog, error)
}

func (m *mockLedger) Create(_ context.Context, log *models.ConversionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	log.ID = uuid.New()
	log.CreatedAt = time.Now()
	m.created = append(m.created, log)
	return nil
}

func (m *mockLedger) GetByID(context.Context, uuid.UUID) (*models.ConversionLog, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLedger) ClaimSend(context.Context, uuid.UUID, uuid.UUID) error {
	return errors.New("not implemented")
}

func (m *mockLedger) ReleaseSend(context.Context, uuid.UUID, uuid.UUID) error {
	return errors.New("not implemented")
}

func (m *mockLedger) MarkSent(context.Context, uuid.UUID, uuid.UUID, models.SentUpdate) error {
	return errors.New("not implemented")
}

func (m *mockLedger) ListByUserSince(context.Context, uuid.UUID, time.Time) ([]*models.ConversionLog, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLedger) RecentSentToRecipient(ctx context.Context, userID uuid.UUID, recipient string, limit int) ([]*models.ConversionLog, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, userID, recipient, limit)
	}
	return nil, nil
}

type mockFetcher struct {
	calls int
	ctx   *models.EmailContext
	err   error
}

func (m *mockFetcher) FetchThreadContext(context.Context, *models.User, string) (*models.EmailContext, error) {
	m.calls++
	return m.ctx, m.err
}

type mockGenerator struct {
	gotLabel   string
	gotContext *models.EmailContext
	result     *ai.Conversion
	err        error
}

func (m *mockGenerator) Generate(_ context.Context, _, recipientLabel string, _ models.ToneProfile, emailCtx *models.EmailContext) (*ai.Conversion, error) {
	m.gotLabel = recipientLabel
	m.gotContext = emailCtx
	return m.result, m.err
}

func connectedUser() *models.User {
	token := "access"
	return &models.User{ID: uuid.New(), Email: "me@example.com", ToneProfile: models.DefaultToneProfile(), GoogleAccessToken: &token}
}
