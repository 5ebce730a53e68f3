// Package mail talks to Gmail on behalf of a connected user: fetching the
// thread being replied to and delivering converted drafts.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/logger"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	// DefaultTimeout bounds a single Gmail API call
	DefaultTimeout = 15 * time.Second

	gmailUser = "me"
)

var (
	// ErrNotConnected is returned when the user has no stored Google credential
	ErrNotConnected = errors.New("user not connected to Google")
	// ErrEmptyThread is returned when a thread has no messages
	ErrEmptyThread = errors.New("thread not found or empty")
)

// CredentialStore persists refreshed Google tokens
type CredentialStore interface {
	UpdateMailCredential(ctx context.Context, id uuid.UUID, cred models.MailCredential) error
}

// Config configures a GmailClient
type Config struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// OAuthEndpoint defaults to google.Endpoint
	OAuthEndpoint oauth2.Endpoint
	// APIEndpoint overrides the Gmail base URL, e.g. for tests
	APIEndpoint string
	HTTPClient  *http.Client
}

// GmailClient fetches thread context and sends mail through the Gmail API
type GmailClient struct {
	oauth       *oauth2.Config
	store       CredentialStore
	timeout     time.Duration
	apiEndpoint string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewGmailClient creates a Gmail collaborator. store may be nil, in which
// case refreshed tokens are used but not persisted.
func NewGmailClient(cfg Config, store CredentialStore, log *zap.Logger) *GmailClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OAuthEndpoint.TokenURL == "" {
		cfg.OAuthEndpoint = google.Endpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GmailClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.OAuthEndpoint,
			Scopes:       []string{gmail.GmailSendScope, gmail.GmailReadonlyScope},
		},
		store:       store,
		timeout:     cfg.Timeout,
		apiEndpoint: cfg.APIEndpoint,
		httpClient:  cfg.HTTPClient,
		logger:      log,
	}
}

// notifyTokenSource persists a token whenever the access token changes
type notifyTokenSource struct {
	mu      sync.Mutex
	src     oauth2.TokenSource
	current *oauth2.Token
	persist func(*oauth2.Token) error
	logger  *zap.Logger
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.AccessToken == t.AccessToken {
		return t, nil
	}
	s.current = t
	if s.persist != nil {
		if err := s.persist(t); err != nil {
			s.logger.Error("failed_to_persist_refreshed_token", zap.Error(err))
		}
	}
	return t, nil
}

func (c *GmailClient) service(ctx context.Context, user *models.User) (*gmail.Service, error) {
	if !user.HasMailCredential() {
		return nil, ErrNotConnected
	}

	token := &oauth2.Token{
		AccessToken: *user.GoogleAccessToken,
		TokenType:   "Bearer",
	}
	if user.GoogleRefreshToken != nil {
		token.RefreshToken = *user.GoogleRefreshToken
	}
	if user.TokenExpiresAt != nil {
		token.Expiry = *user.TokenExpiresAt
	}

	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	userID := user.ID
	source := &notifyTokenSource{
		src:     c.oauth.TokenSource(oauthCtx, token),
		current: token,
		logger:  c.logger,
	}
	if c.store != nil {
		source.persist = func(t *oauth2.Token) error {
			persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return c.store.UpdateMailCredential(persistCtx, userID, models.MailCredential{
				AccessToken:  t.AccessToken,
				RefreshToken: t.RefreshToken,
				ExpiresAt:    t.Expiry,
			})
		}
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(oauthCtx, source))}
	if c.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(c.apiEndpoint))
	}
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// FetchThreadContext summarizes the last message of a thread
func (c *GmailClient) FetchThreadContext(ctx context.Context, user *models.User, threadID string) (*models.EmailContext, error) {
	ctx, span := otel.Tracer("github.com/RedRangerWentWild/IITR1/internal/services/mail").Start(ctx, "mail.FetchThreadContext")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := c.service(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	thread, err := srv.Users.Threads.Get(gmailUser, threadID).
		Format("metadata").
		MetadataHeaders("Subject", "From").
		Context(ctx).
		Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "threads.get failed")
		return nil, fmt.Errorf("unable to get thread: %w", err)
	}

	return ContextFromThread(thread)
}

// Deliver sends out as the user and returns the Gmail message ID
func (c *GmailClient) Deliver(ctx context.Context, user *models.User, out Outgoing) (string, error) {
	ctx, span := otel.Tracer("github.com/RedRangerWentWild/IITR1/internal/services/mail").Start(ctx, "mail.Deliver")
	defer span.End()
	span.SetAttributes(attribute.Bool("mail.threaded", out.ThreadID != ""))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := c.service(ctx, user)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	msg := &gmail.Message{
		Raw:      BuildRawMessage(out),
		ThreadId: out.ThreadID,
	}
	sent, err := srv.Users.Messages.Send(gmailUser, msg).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "messages.send failed")
		return "", fmt.Errorf("unable to send message: %w", err)
	}

	c.logger.Info("mail_delivered",
		zap.String("user_id", user.ID.String()),
		zap.String("to", logger.SanitizeEmail(out.To)),
		zap.String("message_id", sent.Id),
	)
	return sent.Id, nil
}

// ContextFromThread builds reply context from the last message in thread.
// Sender tone is not inferred and is always neutral.
func ContextFromThread(thread *gmail.Thread) (*models.EmailContext, error) {
	if thread == nil || len(thread.Messages) == 0 {
		return nil, ErrEmptyThread
	}
	last := thread.Messages[len(thread.Messages)-1]

	subject := headerValue(last, "Subject")
	if subject == "" {
		subject = "No Subject"
	}

	return &models.EmailContext{
		SenderName:      SenderName(headerValue(last, "From")),
		Subject:         subject,
		SenderTone:      models.ToneNeutral,
		OriginalContent: last.Snippet,
	}, nil
}

// SenderName reduces a From header to its display name:
// `"Sarah Johnson" <sarah@example.com>` becomes `Sarah Johnson`.
func SenderName(from string) string {
	if i := strings.Index(from, "<"); i >= 0 {
		from = from[:i]
	}
	name := strings.TrimSpace(strings.ReplaceAll(from, `"`, ""))
	if name == "" {
		return "Unknown"
	}
	return name
}

func headerValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
