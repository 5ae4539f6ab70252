// Package service provides business logic for the event platform.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
	natsclient "github.com/flockly/event-platform/internal/nats"
	"github.com/flockly/event-platform/internal/store"
	"github.com/flockly/event-platform/pkg/logger"
	"github.com/flockly/event-platform/pkg/metrics"
)

// QueryService owns query threads and their append-only message history.
type QueryService struct {
	store     store.QueryStore
	publisher *natsclient.Publisher
	logger    *logger.Logger
}

// NewQueryService creates a new query service. publisher may be nil.
func NewQueryService(st store.QueryStore, publisher *natsclient.Publisher, log *logger.Logger) *QueryService {
	return &QueryService{
		store:     st,
		publisher: publisher,
		logger:    log,
	}
}

// Create opens a new query thread. When initialMessage is non-empty after
// trimming, the thread is seeded with one user message.
//
// Create does not look for an existing thread; user-facing ask-a-question
// flows must go through ResolveOrCreate or duplicate open threads accumulate
// per user per event.
func (s *QueryService) Create(ctx context.Context, req *model.CreateQueryRequest, userID, userName string) (*model.Query, error) {
	if req.EventID.String() == "" {
		return nil, apperr.New(apperr.KindValidation, "eventId is required")
	}

	if userName == "" {
		userName = req.UserName
	}
	if userName == "" {
		userName = "Anonymous"
	}

	now := time.Now().UTC()
	q := &model.Query{
		ID:        uuid.Must(uuid.NewV7()).String(),
		EventID:   model.Ref(req.EventID.String()),
		EventName: req.EventName,
		UserID:    model.Ref(userID),
		UserName:  userName,
		Status:    model.QueryOpen,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if text := strings.TrimSpace(req.InitialMessage); text != "" {
		q.Messages = append(q.Messages, model.Message{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Sender:    model.SenderUser,
			Text:      text,
			CreatedAt: now,
		})
	}

	if err := s.store.CreateQuery(ctx, q); err != nil {
		return nil, err
	}

	metrics.QueriesTotal.Inc()
	for _, m := range q.Messages {
		metrics.MessagesTotal.WithLabelValues(string(m.Sender)).Inc()
	}
	s.publisher.QueryCreated(ctx, q)

	s.logger.Info("query created",
		zap.String("query_id", q.ID),
		zap.String("event_id", q.EventID.String()),
	)
	return q, nil
}

// AppendMessage durably appends one message to a thread and returns it.
//
// Sender attribution: an explicit sender of "user" or "manager" wins;
// otherwise the sender is derived from the caller's role, so managers post
// as "manager" by default and everyone else as "user".
func (s *QueryService) AppendMessage(ctx context.Context, queryID string, req *model.AppendMessageRequest, callerRole model.Role) (*model.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "message text required")
	}

	sender := model.SenderUser
	if req.Sender.Valid() {
		sender = req.Sender
	} else if callerRole == model.RoleManager {
		sender = model.SenderManager
	}

	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}

	msg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	msg, err = s.store.AppendMessage(ctx, queryID, msg)
	if err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(sender)).Inc()
	s.publisher.MessageAppended(ctx, q, msg)

	return &msg, nil
}

// Get returns a thread with all messages in append order.
func (s *QueryService) Get(ctx context.Context, queryID string) (*model.Query, error) {
	return s.store.GetQuery(ctx, queryID)
}

// List returns threads matching the filter, most recently updated first.
// Access control for the empty filter lives with the caller.
func (s *QueryService) List(ctx context.Context, filter model.QueryFilter) ([]model.Query, error) {
	return s.store.ListQueries(ctx, filter)
}

// Close marks a thread closed.
func (s *QueryService) Close(ctx context.Context, queryID string) error {
	return s.store.SetQueryStatus(ctx, queryID, model.QueryClosed)
}

// ResolveOrCreate finds the thread for (eventID, userID) or creates an empty
// one. Nothing in the schema deduplicates threads, so this resolver is the
// sole duplicate-prevention boundary: when several threads match, the first
// one in the listing is used.
//
// Reference fields may surface either as bare identifiers or as expanded
// objects with a nested id, so both sides of every comparison go through
// the canonical string form.
func (s *QueryService) ResolveOrCreate(ctx context.Context, eventID model.Ref, eventName, userID, userName string) (*model.Query, error) {
	target := eventID.String()
	if target == "" {
		return nil, apperr.New(apperr.KindValidation, "eventId is required")
	}

	queries, err := s.store.ListQueries(ctx, model.QueryFilter{EventID: target})
	if err != nil {
		return nil, err
	}

	for i := range queries {
		q := &queries[i]
		if q.EventID.String() != target {
			continue
		}
		// Status is deliberately ignored: an existing thread is
		// authoritative whether open or closed.
		if userID != "" && q.UserID.String() == userID {
			return q, nil
		}
	}

	return s.Create(ctx, &model.CreateQueryRequest{
		EventID:   model.Ref(target),
		EventName: eventName,
	}, userID, userName)
}
