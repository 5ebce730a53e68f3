package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionClaims are the identity claims carried by a session token
type SessionClaims struct {
	UserID    uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Issuer    string    `json:"iss"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
