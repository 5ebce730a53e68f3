package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversionStatus is the derived lifecycle state of a ledger entry
type ConversionStatus string

const (
	ConversionStatusConverted ConversionStatus = "converted"
	ConversionStatusSent      ConversionStatus = "sent"
)

// EditsAppliedUserBody marks an entry whose body was edited before sending
const EditsAppliedUserBody = "User edited body"

// ConversionLog is the ledger entry for one generated draft and its send outcome
type ConversionLog struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	DraftID          string     `json:"draft_id"`
	UserInput        string     `json:"user_input"`
	RecipientEmail   string     `json:"recipient_email"`
	Subject          string     `json:"subject"`
	AIOutput         string     `json:"ai_output"`
	DetectedTone     Tone       `json:"detected_tone"`
	PreviewShown     bool       `json:"preview_shown"`
	UserEdited       bool       `json:"user_edited"`
	SentSuccessfully bool       `json:"sent_successfully"`
	ReplyTimeMs      *int64     `json:"reply_time_ms,omitempty"`
	EditsApplied     *string    `json:"edits_applied,omitempty"`
	MessageID        *string    `json:"message_id,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Status derives the lifecycle state from SentSuccessfully
func (c *ConversionLog) Status() ConversionStatus {
	if c.SentSuccessfully {
		return ConversionStatusSent
	}
	return ConversionStatusConverted
}

// SentUpdate is the single mutation applied to a ledger entry after delivery
type SentUpdate struct {
	UserEdited   bool      `json:"user_edited"`
	ReplyTimeMs  int64     `json:"reply_time_ms"`
	EditsApplied *string   `json:"edits_applied,omitempty"`
	MessageID    string    `json:"message_id"`
	SentAt       time.Time `json:"sent_at"`
}

// NewSentUpdate builds the update for an entry created at createdAt and sent at sentAt
func NewSentUpdate(createdAt, sentAt time.Time, edited bool, messageID string) SentUpdate {
	u := SentUpdate{
		UserEdited:  edited,
		ReplyTimeMs: sentAt.Sub(createdAt).Milliseconds(),
		MessageID:   messageID,
		SentAt:      sentAt,
	}
	if u.ReplyTimeMs < 0 {
		u.ReplyTimeMs = 0
	}
	if edited {
		marker := EditsAppliedUserBody
		u.EditsApplied = &marker
	}
	return u
}
