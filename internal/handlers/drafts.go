package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/delivery"
	"github.com/RedRangerWentWild/IITR1/internal/services/drafting"
	"github.com/RedRangerWentWild/IITR1/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DraftConverter turns casual text into a recorded draft
type DraftConverter interface {
	Convert(ctx context.Context, user *models.User, req drafting.ConvertRequest) (*drafting.ConvertResult, error)
}

// DraftSender delivers a recorded draft
type DraftSender interface {
	Send(ctx context.Context, req delivery.SendRequest) (*delivery.SendResult, error)
}

var (
	_ DraftConverter = (*drafting.Service)(nil)
	_ DraftSender    = (*delivery.Orchestrator)(nil)
)

// DraftHandler serves draft conversion and delivery
type DraftHandler struct {
	converter DraftConverter
	sender    DraftSender
	logger    *zap.Logger
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(converter DraftConverter, sender DraftSender, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{converter: converter, sender: sender, logger: logger}
}

// RegisterRoutes registers draft routes. The router should already have the /api/v1/drafts prefix.
// convertMW wraps only the convert route, which calls the model.
func (h *DraftHandler) RegisterRoutes(r *mux.Router, convertMW ...mux.MiddlewareFunc) {
	var convert http.Handler = http.HandlerFunc(h.ConvertDraft)
	for i := len(convertMW) - 1; i >= 0; i-- {
		convert = convertMW[i](convert)
	}
	r.Handle("/convert", convert).Methods("POST")
	r.HandleFunc("/{draftId}/send", h.SendDraft).Methods("POST")
}

// ConvertDraftRequest is the body of POST /drafts/convert
type ConvertDraftRequest struct {
	UserInput         string `json:"userInput" validate:"required,max=5000"`
	RecipientName     string `json:"recipientName,omitempty" validate:"max=200"`
	RecipientEmail    string `json:"recipientEmail,omitempty" validate:"max=320"`
	ThreadID          string `json:"threadId,omitempty" validate:"max=256"`
	OriginalEmailBody string `json:"originalEmailBody,omitempty" validate:"max=100000"`
}

// ConvertedEmail is the generated message
type ConvertedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Preview string `json:"preview"`
}

// ConvertDraftResponse is returned by POST /drafts/convert
type ConvertDraftResponse struct {
	DraftID        string         `json:"draftId"`
	DraftRef       string         `json:"draftRef"`
	ConvertedEmail ConvertedEmail `json:"convertedEmail"`
	DetectedTone   models.Tone    `json:"detectedTone"`
	Confidence     float64        `json:"confidence"`
}

// ConvertDraft handles POST /api/v1/drafts/convert
func (h *DraftHandler) ConvertDraft(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}

	var req ConvertDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.converter.Convert(r.Context(), user, drafting.ConvertRequest{
		UserInput:         validation.SanitizeText(req.UserInput),
		RecipientName:     validation.SanitizeText(req.RecipientName),
		RecipientEmail:    validation.SanitizeText(req.RecipientEmail),
		ThreadID:          req.ThreadID,
		OriginalEmailBody: req.OriginalEmailBody,
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondBody(w, http.StatusOK, ConvertDraftResponse{
		DraftID:  res.Entry.ID.String(),
		DraftRef: res.Entry.DraftID,
		ConvertedEmail: ConvertedEmail{
			Subject: res.Subject,
			Body:    res.Body,
			Preview: res.Preview,
		},
		DetectedTone: res.DetectedTone,
		Confidence:   res.Confidence,
	})
}

// SendDraftRequest is the body of POST /drafts/{draftId}/send
type SendDraftRequest struct {
	UserEdits      *string `json:"userEdits,omitempty" validate:"omitempty,max=100000"`
	ThreadID       string  `json:"threadId,omitempty" validate:"max=256"`
	Subject        *string `json:"subject,omitempty" validate:"omitempty,max=998"`
	RecipientEmail *string `json:"recipientEmail,omitempty" validate:"omitempty,max=320"`
}

// SendDraftResponse is returned by POST /drafts/{draftId}/send
type SendDraftResponse struct {
	Success   bool      `json:"success"`
	SentAt    time.Time `json:"sentAt"`
	MessageID string    `json:"messageId"`
}

// SendDraft handles POST /api/v1/drafts/{draftId}/send
func (h *DraftHandler) SendDraft(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}

	entryID, err := uuid.Parse(mux.Vars(r)["draftId"])
	if err != nil {
		respondJSONError(w, http.StatusNotFound, string(apperr.KindNotFound), "draft not found")
		return
	}

	var req SendDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.sender.Send(r.Context(), delivery.SendRequest{
		EntryID:   entryID,
		User:      user,
		UserEdits: req.UserEdits,
		Subject:   req.Subject,
		Recipient: req.RecipientEmail,
		ThreadID:  req.ThreadID,
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondBody(w, http.StatusOK, SendDraftResponse{
		Success:   true,
		SentAt:    res.SentAt,
		MessageID: res.MessageID,
	})
}
