package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/internal/service"
	"github.com/flockly/event-platform/pkg/logger"
)

// RegistrationHandler handles registration endpoints.
type RegistrationHandler struct {
	service *service.RegistrationService
	logger  *logger.Logger
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(svc *service.RegistrationService, log *logger.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/registrations
//
// Capacity and duplicate rejections come back as 400 with the specific
// reason so the UI can tell "full" from "already registered".
func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reg, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"message":      "registration successful",
		"registration": reg,
	})
}

// ListByEvent handles GET /api/registrations/event/{eventId}
func (h *RegistrationHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.ListByEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.logger.Error("failed to list registrations", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"registrations": regs})
}
