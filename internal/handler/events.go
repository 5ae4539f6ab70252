package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flockly/event-platform/internal/middleware"
	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/internal/service"
	"github.com/flockly/event-platform/pkg/logger"
)

// EventHandler handles event endpoints.
type EventHandler struct {
	service *service.EventService
	logger  *logger.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(svc *service.EventService, log *logger.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	var req model.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.service.Create(ctx, &req, identity.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"message": "event created successfully",
		"event":   e,
	})
}

// List handles GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": events})
}

// ListMine handles GET /api/events/manager
func (h *EventHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	events, err := h.service.ListByManager(ctx, identity.UserID)
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": events})
}

// Get handles GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"event": e})
}

// Update handles PUT /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	var req model.UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.service.Update(ctx, chi.URLParam(r, "id"), identity.UserID, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "event updated successfully",
		"event":   e,
	})
}

// Delete handles DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	if err := h.service.Delete(ctx, chi.URLParam(r, "id"), identity.UserID); err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"message": "event deleted successfully"})
}
