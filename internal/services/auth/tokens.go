// Package auth issues and verifies the HS256 session tokens that identify
// the acting user on every API request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// DefaultIssuer is the iss claim of issued tokens
	DefaultIssuer = "draft-relay"
	// DefaultTTL matches the session length handed to clients on login
	DefaultTTL = time.Hour

	claimUserID = "id"
	claimEmail  = "email"
)

// ErrInvalidToken is wrapped by every verification failure
var ErrInvalidToken = errors.New("invalid session token")

// TokenService signs and verifies session tokens with a shared secret
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. The secret must not be empty.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for user valid for the service TTL
func (s *TokenService) Issue(user *models.User) (string, error) {
	now := s.now()
	tok, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(user.ID.String()).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim(claimUserID, user.ID.String()).
		Claim(claimEmail, user.Email).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks signature, issuer and expiry, and extracts the identity claims
func (s *TokenService) Verify(tokenString string) (*models.SessionClaims, error) {
	tok, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	raw, ok := tok.Get(claimUserID)
	if !ok {
		return nil, fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}
	idStr, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: id claim is not a string", ErrInvalidToken)
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("%w: id claim is not a UUID", ErrInvalidToken)
	}

	claims := &models.SessionClaims{
		UserID:    userID,
		Issuer:    tok.Issuer(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}
	if email, ok := tok.Get(claimEmail); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}
	return claims, nil
}
