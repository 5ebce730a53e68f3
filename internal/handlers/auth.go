package handlers

import (
	"net/http"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/gorilla/mux"
)

// AuthHandler handles session-related requests
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
