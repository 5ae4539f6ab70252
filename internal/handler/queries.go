// Package handler provides HTTP handlers for the API.
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

// QueryHandler handles query thread endpoints.
type QueryHandler struct {
	service *service.QueryService
	logger  *logger.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(svc *service.QueryService, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/queries?eventId=&userId=
//
// With no filter: unauthenticated callers get 401, authenticated non-managers
// are implicitly filtered to their own threads, managers get everything.
func (h *QueryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := model.QueryFilter{
		EventID: r.URL.Query().Get("eventId"),
		UserID:  r.URL.Query().Get("userId"),
	}

	if filter.EventID == "" && filter.UserID == "" {
		identity, ok := middleware.GetIdentity(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !identity.IsManager() {
			filter.UserID = identity.UserID
		}
	}

	queries, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.Error("failed to list queries", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"queries": queries})
}

// Create handles POST /api/queries
func (h *QueryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	var req model.CreateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.service.Create(ctx, &req, identity.UserID, identity.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"query": q})
}

// Resolve handles POST /api/queries/resolve
//
// Finds the caller's thread for the event or creates an empty one. This is
// the endpoint ask-a-question flows should use; raw Create is kept for
// compatibility but does not deduplicate.
func (h *QueryHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	var req model.CreateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.service.ResolveOrCreate(ctx, req.EventID, req.EventName, identity.UserID, identity.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"query": q})
}

// Get handles GET /api/queries/{id}
func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"query": q})
}

// AppendMessage handles POST /api/queries/{id}/messages
func (h *QueryHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middleware.GetIdentity(ctx)

	var req model.AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.service.AppendMessage(ctx, chi.URLParam(r, "id"), &req, identity.Role)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"message": msg})
}

// Close handles POST /api/queries/{id}/close
func (h *QueryHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"message": "query closed"})
}

// ManagerAll handles GET /api/queries/manager/all
func (h *QueryHandler) ManagerAll(w http.ResponseWriter, r *http.Request) {
	queries, err := h.service.List(r.Context(), model.QueryFilter{})
	if err != nil {
		h.logger.Error("failed to list queries", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"queries": queries})
}
