// Package delivery sends a converted draft and records the outcome in the
// ledger and the daily metrics.
package delivery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/logger"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/mail"
	"github.com/RedRangerWentWild/IITR1/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// DefaultSubject is used when neither the request nor the entry has one
	DefaultSubject = "New Message"

	// demo clients send thread "1" when there is no real thread
	sentinelThreadID = "1"
)

// Deliverer sends a message as user and returns the provider message ID
type Deliverer interface {
	Deliver(ctx context.Context, user *models.User, out mail.Outgoing) (string, error)
}

// Reconciler records a delivery that was sent but could not be written
// to the ledger or metrics, for a later retry.
type Reconciler interface {
	RecordDelivery(ctx context.Context, rec PendingDelivery) error
}

// PendingDelivery is the payload needed to finish recording a sent draft
type PendingDelivery struct {
	EntryID uuid.UUID         `json:"entry_id"`
	UserID  uuid.UUID         `json:"user_id"`
	Update  models.SentUpdate `json:"update"`
	// LedgerApplied is set once the sent transition is stored, so a retry
	// only repeats the metrics increment
	LedgerApplied bool `json:"ledger_applied"`
}

// SendRequest asks to deliver a ledger entry. Nil pointers mean "not provided".
type SendRequest struct {
	EntryID   uuid.UUID
	User      *models.User
	UserEdits *string
	Subject   *string
	Recipient *string
	ThreadID  string
}

// SendResult reports a completed delivery
type SendResult struct {
	SentAt    time.Time
	MessageID string
	// Recorded is false when the ledger or metrics write was deferred to reconciliation
	Recorded bool
}

// Orchestrator drives the confirm-and-send step
type Orchestrator struct {
	logs       database.ConversionLogRepositoryInterface
	recorder   *Recorder
	deliverer  Deliverer
	reconciler Reconciler
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator. reconciler may be nil, in which
// case unrecorded deliveries are only logged.
func NewOrchestrator(
	logs database.ConversionLogRepositoryInterface,
	metrics database.DailyMetricsRepositoryInterface,
	deliverer Deliverer,
	reconciler Reconciler,
	sendTimeout time.Duration,
	log *zap.Logger,
) *Orchestrator {
	if sendTimeout <= 0 {
		sendTimeout = mail.DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		logs:       logs,
		recorder:   NewRecorder(logs, metrics, log),
		deliverer:  deliverer,
		reconciler: reconciler,
		timeout:    sendTimeout,
		logger:     log,
		now:        time.Now,
	}
}

// Send delivers the entry at most once and records it as sent.
// The entry is claimed before the external send so concurrent callers get
// a conflict instead of a second email. A failed send releases the claim;
// failures after the send are reconciled and never cause a re-send.
func (o *Orchestrator) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	ctx, span := otel.Tracer("github.com/RedRangerWentWild/IITR1/internal/services/delivery").Start(ctx, "delivery.Send")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", req.EntryID.String()))

	if req.User == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "authentication required", nil)
	}

	entry, err := o.logs.GetByID(ctx, req.EntryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "draft not found", err)
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if entry.UserID != req.User.ID {
		return nil, apperr.New(apperr.KindForbidden, "draft belongs to another user", nil)
	}
	if entry.SentSuccessfully {
		return nil, apperr.New(apperr.KindConflict, "draft was already sent", nil)
	}

	out, err := resolveOutgoing(entry, req)
	if err != nil {
		return nil, err
	}
	if !req.User.HasMailCredential() {
		return nil, apperr.New(apperr.KindUnauthenticated, "user not connected to Google", nil)
	}

	if err := o.logs.ClaimSend(ctx, entry.ID, req.User.ID); err != nil {
		if errors.Is(err, database.ErrSendInProgress) {
			return nil, apperr.New(apperr.KindConflict, "draft was already sent", err)
		}
		return nil, fmt.Errorf("failed to claim draft: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, o.timeout)
	messageID, err := o.deliverer.Deliver(sendCtx, req.User, out)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		o.logger.Error("delivery_failed",
			zap.String("entry_id", entry.ID.String()),
			zap.String("user_id", req.User.ID.String()),
			zap.Error(err),
		)
		if relErr := o.logs.ReleaseSend(context.WithoutCancel(ctx), entry.ID, req.User.ID); relErr != nil {
			o.logger.Error("delivery_claim_release_failed",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(relErr),
			)
		}
		return nil, apperr.New(apperr.KindDeliveryFailed, "failed to send email", err)
	}

	sentAt := o.now().UTC()
	update := models.NewSentUpdate(entry.CreatedAt, sentAt, req.UserEdits != nil, messageID)
	result := &SendResult{SentAt: sentAt, MessageID: messageID, Recorded: true}

	// The mail is out. From here on nothing may fail the request.
	recordCtx := context.WithoutCancel(ctx)
	pending := &PendingDelivery{EntryID: entry.ID, UserID: req.User.ID, Update: update}
	if err := o.recorder.Record(recordCtx, pending); err != nil {
		result.Recorded = false
		span.SetAttributes(attribute.Bool("delivery.recorded", false))
		o.reconcile(recordCtx, *pending, err)
	}

	o.logger.Info("delivery_sent",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", req.User.ID.String()),
		zap.String("to", logger.SanitizeEmail(out.To)),
		zap.String("message_id", messageID),
		zap.Int64("reply_time_ms", update.ReplyTimeMs),
		zap.Bool("user_edited", update.UserEdited),
		zap.Bool("recorded", result.Recorded),
	)
	return result, nil
}

func (o *Orchestrator) reconcile(ctx context.Context, pending PendingDelivery, cause error) {
	fields := []zap.Field{
		zap.String("entry_id", pending.EntryID.String()),
		zap.String("user_id", pending.UserID.String()),
		zap.String("message_id", pending.Update.MessageID),
		zap.Int64("reply_time_ms", pending.Update.ReplyTimeMs),
		zap.Time("sent_at", pending.Update.SentAt),
		zap.Bool("user_edited", pending.Update.UserEdited),
		zap.Bool("ledger_applied", pending.LedgerApplied),
	}
	o.logger.Error("delivery_sent_but_unrecorded", append(fields, zap.Error(cause))...)

	if o.reconciler == nil {
		return
	}
	if err := o.reconciler.RecordDelivery(ctx, pending); err != nil {
		o.logger.Error("delivery_reconcile_enqueue_failed", append(fields, zap.Error(err))...)
	}
}

// resolveOutgoing merges request overrides with the stored entry
func resolveOutgoing(entry *models.ConversionLog, req SendRequest) (mail.Outgoing, error) {
	body := entry.AIOutput
	if req.UserEdits != nil {
		body = *req.UserEdits
	}

	subject := entry.Subject
	if req.Subject != nil && strings.TrimSpace(*req.Subject) != "" {
		subject = *req.Subject
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	recipient := entry.RecipientEmail
	if req.Recipient != nil && validation.IsValidRecipient(*req.Recipient) {
		recipient = *req.Recipient
	}
	if !validation.IsValidRecipient(recipient) {
		attempted := recipient
		if req.Recipient != nil && *req.Recipient != "" {
			attempted = *req.Recipient
		}
		return mail.Outgoing{}, apperr.New(apperr.KindInvalidRecipient, "invalid recipient email", nil).
			WithDetail(fmt.Sprintf("The recipient %q is not a valid email address. Please provide a valid email.", attempted))
	}

	threadID := req.ThreadID
	if threadID == sentinelThreadID {
		threadID = ""
	}

	return mail.Outgoing{
		To:       recipient,
		Subject:  subject,
		Body:     body,
		ThreadID: threadID,
	}, nil
}
