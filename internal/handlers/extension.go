package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/drafting"
	"github.com/RedRangerWentWild/IITR1/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DraftContextProvider looks up recipient history for the extension
type DraftContextProvider interface {
	DraftContext(ctx context.Context, user *models.User, recipient string) (*drafting.DraftContext, error)
}

var _ DraftContextProvider = (*drafting.ContextService)(nil)

// ExtensionHandler serves the browser extension endpoints
type ExtensionHandler struct {
	contexts DraftContextProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewExtensionHandler creates a new extension handler
func NewExtensionHandler(contexts DraftContextProvider, logger *zap.Logger) *ExtensionHandler {
	return &ExtensionHandler{contexts: contexts, logger: logger, now: time.Now}
}

// RegisterRoutes registers extension routes. The router should already have the /api/v1/extension prefix.
func (h *ExtensionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/get-draft-context", h.GetDraftContext).Methods("POST")
	r.HandleFunc("/validate-oauth", h.ValidateOAuth).Methods("POST")
}

// DraftContextRequest is the body of POST /extension/get-draft-context
type DraftContextRequest struct {
	Recipient string `json:"recipient" validate:"required,max=320"`
}

// GetDraftContext handles POST /api/v1/extension/get-draft-context
func (h *ExtensionHandler) GetDraftContext(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}

	var req DraftContextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dc, err := h.contexts.DraftContext(r.Context(), user, validation.SanitizeText(req.Recipient))
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

// ValidateOAuth handles POST /api/v1/extension/validate-oauth
func (h *ExtensionHandler) ValidateOAuth(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}
	respondJSON(w, http.StatusOK, drafting.CredentialStatus(user, h.now()))
}
