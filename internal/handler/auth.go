package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flockly/event-platform/internal/middleware"
	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/pkg/logger"
)

// AuthHandler exposes the session surface. The OAuth dance that proves who
// the user is happens outside this service; this handler only reports and
// destroys sessions, plus an optional dev login for local work.
type AuthHandler struct {
	resolver        *middleware.Resolver
	devLoginEnabled bool
	logger          *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(resolver *middleware.Resolver, devLoginEnabled bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		resolver:        resolver,
		devLoginEnabled: devLoginEnabled,
		logger:          log,
	}
}

// CurrentUser handles GET /auth/user
//
// Matches the original surface: always 200, with success=false when no
// session is present.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "not authenticated",
		})
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user": model.User{
			ID:    identity.UserID,
			Name:  identity.Name,
			Email: identity.Email,
			Role:  identity.Role,
		},
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.resolver.EndSession(r)
	http.SetCookie(w, &http.Cookie{
		Name:     h.resolver.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeSuccess(w, http.StatusOK, map[string]any{"message": "logged out successfully"})
}

// DevLoginRequest is the payload for the development-only login.
type DevLoginRequest struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"userType"`
}

// DevLogin handles POST /auth/dev-login. Disabled unless DEV_LOGIN_ENABLED
// is set; responds 404 when disabled so the endpoint stays invisible.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devLoginEnabled {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req DevLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != model.RoleManager {
		req.Role = model.RoleUser
	}

	user := model.User{
		ID:    uuid.Must(uuid.NewV7()).String(),
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}

	rec, token, err := h.resolver.StartSession(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.resolver.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  rec.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}
