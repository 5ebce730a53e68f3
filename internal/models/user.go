package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Name        *string     `json:"name,omitempty"`
	ToneProfile ToneProfile `json:"tone_profile"`
	// Mail credential, owned by the Google OAuth flow. Never serialized.
	GoogleAccessToken  *string    `json:"-"`
	GoogleRefreshToken *string    `json:"-"`
	TokenExpiresAt     *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasMailCredential reports whether the user has linked a mailbox
func (u *User) HasMailCredential() bool {
	return u != nil && u.GoogleAccessToken != nil && *u.GoogleAccessToken != ""
}

// MailCredential is a refreshed Google token pair to be persisted
type MailCredential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
