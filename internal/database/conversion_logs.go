package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrAlreadySent is returned by MarkSent when the entry was already marked sent
	ErrAlreadySent = errors.New("conversion log already sent")

	// ErrSendInProgress is returned by ClaimSend when the entry is sent or claimed by another send
	ErrSendInProgress = errors.New("conversion log send already claimed")
)

const conversionLogColumns = `id, user_id, draft_id, user_input, recipient_email, subject, ai_output, detected_tone,
	preview_shown, user_edited, sent_successfully, reply_time_ms, edits_applied, message_id, sent_at, created_at`

// ConversionLogRepository is the ledger of generated drafts and their send outcome
type ConversionLogRepository struct {
	db *DB
}

// NewConversionLogRepository creates a new conversion log repository
func NewConversionLogRepository(db *DB) *ConversionLogRepository {
	return &ConversionLogRepository{db: db}
}

// Create inserts exactly one ledger entry. The storage-assigned ID and
// creation time are written back to log once the insert is acknowledged.
func (r *ConversionLogRepository) Create(ctx context.Context, log *models.ConversionLog) error {
	query := `
		INSERT INTO conversion_logs (user_id, draft_id, user_input, recipient_email, subject, ai_output, detected_tone, preview_shown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		log.UserID,
		log.DraftID,
		log.UserInput,
		log.RecipientEmail,
		log.Subject,
		log.AIOutput,
		log.DetectedTone,
		log.PreviewShown,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversion log: %w", err)
	}

	log.SentSuccessfully = false
	return nil
}

// GetByID retrieves a ledger entry by its storage ID
func (r *ConversionLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConversionLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversionLogColumns+` FROM conversion_logs WHERE id = $1`, id)
	log, err := scanConversionLog(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversion log not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion log: %w", err)
	}
	return log, nil
}

// ClaimSend reserves an unsent entry owned by userID for a single delivery
// attempt. Only one caller can hold the claim; everyone else gets
// ErrSendInProgress until the claim is released or the entry is sent.
func (r *ConversionLogRepository) ClaimSend(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE conversion_logs SET send_claimed_at = NOW()
		WHERE id = $1 AND user_id = $2 AND sent_successfully = FALSE AND send_claimed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to claim conversion log: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrSendInProgress
	}
	return nil
}

// ReleaseSend drops the claim on an entry that was not sent, so it can be retried
func (r *ConversionLogRepository) ReleaseSend(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE conversion_logs SET send_claimed_at = NULL
		WHERE id = $1 AND user_id = $2 AND sent_successfully = FALSE
	`

	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("failed to release conversion log claim: %w", err)
	}
	return nil
}

// MarkSent transitions an entry owned by userID from unsent to sent.
// The update only applies while sent_successfully is false; a second call
// returns ErrAlreadySent and changes nothing.
func (r *ConversionLogRepository) MarkSent(ctx context.Context, id, userID uuid.UUID, update models.SentUpdate) error {
	query := `
		UPDATE conversion_logs SET
			sent_successfully = TRUE,
			user_edited = $3,
			reply_time_ms = $4,
			edits_applied = $5,
			message_id = $6,
			sent_at = $7
		WHERE id = $1 AND user_id = $2 AND sent_successfully = FALSE
	`

	result, err := r.db.ExecContext(ctx, query,
		id,
		userID,
		update.UserEdited,
		update.ReplyTimeMs,
		update.EditsApplied,
		update.MessageID,
		update.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark conversion log sent: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrAlreadySent
	}
	return nil
}

// ListByUserSince returns the user's entries created at or after since
func (r *ConversionLogRepository) ListByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ConversionLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversionLogColumns+`
		FROM conversion_logs
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list conversion logs: %w", err)
	}
	return collectConversionLogs(rows)
}

// RecentSentToRecipient returns up to limit sent entries to recipient, newest first
func (r *ConversionLogRepository) RecentSentToRecipient(ctx context.Context, userID uuid.UUID, recipient string, limit int) ([]*models.ConversionLog, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversionLogColumns+`
		FROM conversion_logs
		WHERE user_id = $1 AND recipient_email = $2 AND sent_successfully = TRUE
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent sent conversion logs: %w", err)
	}
	return collectConversionLogs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversionLog(row rowScanner) (*models.ConversionLog, error) {
	log := &models.ConversionLog{}
	var replyTime sql.NullInt64
	var editsApplied, messageID sql.NullString
	var sentAt sql.NullTime

	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.DraftID,
		&log.UserInput,
		&log.RecipientEmail,
		&log.Subject,
		&log.AIOutput,
		&log.DetectedTone,
		&log.PreviewShown,
		&log.UserEdited,
		&log.SentSuccessfully,
		&replyTime,
		&editsApplied,
		&messageID,
		&sentAt,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if replyTime.Valid {
		log.ReplyTimeMs = &replyTime.Int64
	}
	if editsApplied.Valid {
		log.EditsApplied = &editsApplied.String
	}
	if messageID.Valid {
		log.MessageID = &messageID.String
	}
	if sentAt.Valid {
		log.SentAt = &sentAt.Time
	}
	return log, nil
}

func collectConversionLogs(rows *sql.Rows) ([]*models.ConversionLog, error) {
	defer func() { _ = rows.Close() }()

	var logs []*models.ConversionLog
	for rows.Next() {
		log, err := scanConversionLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversion logs: %w", err)
	}
	return logs, nil
}
