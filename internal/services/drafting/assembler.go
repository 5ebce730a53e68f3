// Package drafting turns a user's casual input into a converted draft and
// records it in the conversion ledger.
package drafting

import (
	"context"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"go.uber.org/zap"
)

// SentinelThreadID is sent by demo clients that have no real thread
const SentinelThreadID = "1"

// ThreadFetcher loads reply context for a mail thread
type ThreadFetcher interface {
	FetchThreadContext(ctx context.Context, user *models.User, threadID string) (*models.EmailContext, error)
}

// Assembler resolves the context of the email being replied to.
// It never fails; a context it cannot build is simply absent.
type Assembler struct {
	fetcher ThreadFetcher
	logger  *zap.Logger
}

// NewAssembler creates an Assembler. fetcher may be nil when mail is not configured.
func NewAssembler(fetcher ThreadFetcher, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{fetcher: fetcher, logger: logger}
}

// Assemble returns the fetched thread context when possible, else a
// placeholder built from originalBody, else nil.
func (a *Assembler) Assemble(ctx context.Context, threadID, originalBody string, user *models.User) *models.EmailContext {
	if a.fetcher != nil && threadID != "" && threadID != SentinelThreadID && user.HasMailCredential() {
		emailCtx, err := a.fetcher.FetchThreadContext(ctx, user, threadID)
		if err == nil && emailCtx != nil {
			return emailCtx
		}
		a.logger.Warn("thread_context_unavailable",
			zap.String("thread_id", threadID),
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	if originalBody != "" {
		return &models.EmailContext{
			SenderName:      "Unknown",
			Subject:         "Re: (No Subject)",
			SenderTone:      models.ToneNeutral,
			OriginalContent: originalBody,
		}
	}
	return nil
}
