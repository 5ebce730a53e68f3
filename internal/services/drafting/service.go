package drafting

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/logger"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// UnknownRecipient labels drafts with no recipient
	UnknownRecipient = "unknown"
	// PreviewLength is the number of runes kept in a draft preview
	PreviewLength = 100
	// StaticConfidence is reported with every conversion
	StaticConfidence = 0.9
)

// Generator produces a converted draft
type Generator interface {
	Generate(ctx context.Context, userInput, recipientLabel string, profile models.ToneProfile, emailCtx *models.EmailContext) (*ai.Conversion, error)
}

// ConvertRequest is a user's request to convert a casual draft
type ConvertRequest struct {
	UserInput         string
	RecipientName     string
	RecipientEmail    string
	ThreadID          string
	OriginalEmailBody string
}

// ConvertResult is a generated draft and the ledger entry recording it
type ConvertResult struct {
	Entry        *models.ConversionLog
	Subject      string
	Body         string
	Preview      string
	DetectedTone models.Tone
	Confidence   float64
}

// Service runs assemble → generate → record
type Service struct {
	assembler *Assembler
	generator Generator
	logs      database.ConversionLogRepositoryInterface
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a drafting service
func NewService(assembler *Assembler, generator Generator, logs database.ConversionLogRepositoryInterface, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		assembler: assembler,
		generator: generator,
		logs:      logs,
		logger:    logger,
		now:       time.Now,
	}
}

// Convert generates a draft and records exactly one unsent ledger entry.
// Nothing is recorded when generation fails.
func (s *Service) Convert(ctx context.Context, user *models.User, req ConvertRequest) (*ConvertResult, error) {
	if user == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "authentication required", nil)
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "userInput is required", nil)
	}

	ctx = ai.WithUserID(ctx, user.ID)
	emailCtx := s.assembler.Assemble(ctx, req.ThreadID, req.OriginalEmailBody, user)

	conv, err := s.generator.Generate(ctx, req.UserInput, RecipientLabel(req.RecipientName, req.RecipientEmail), user.ToneProfile, emailCtx)
	if err != nil {
		return nil, err
	}

	recipient := req.RecipientEmail
	if recipient == "" {
		recipient = UnknownRecipient
	}

	entry := &models.ConversionLog{
		UserID:         user.ID,
		DraftID:        NewDraftID(s.now()),
		UserInput:      req.UserInput,
		RecipientEmail: recipient,
		Subject:        conv.Subject,
		AIOutput:       conv.Body,
		DetectedTone:   conv.DetectedTone,
		PreviewShown:   true,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record conversion: %w", err)
	}

	s.logger.Info("draft_converted",
		zap.String("user_id", user.ID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("draft_id", entry.DraftID),
		zap.String("recipient", logger.SanitizeEmail(recipient)),
		zap.String("detected_tone", string(conv.DetectedTone)),
		zap.Bool("has_context", emailCtx != nil),
	)

	return &ConvertResult{
		Entry:        entry,
		Subject:      conv.Subject,
		Body:         conv.Body,
		Preview:      Preview(conv.Body),
		DetectedTone: conv.DetectedTone,
		Confidence:   StaticConfidence,
	}, nil
}

// RecipientLabel picks the name shown to the model: name, then email, then "unknown"
func RecipientLabel(name, email string) string {
	switch {
	case name != "":
		return name
	case email != "":
		return email
	default:
		return UnknownRecipient
	}
}

// NewDraftID returns a human-readable draft identifier: draft_<unix ms>_<8 hex>
func NewDraftID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("draft_%d_%s", now.UnixMilli(), suffix)
}

// Preview returns the first PreviewLength runes of body followed by "..."
func Preview(body string) string {
	if utf8.RuneCountInString(body) <= PreviewLength {
		return body + "..."
	}
	return string([]rune(body)[:PreviewLength]) + "..."
}
