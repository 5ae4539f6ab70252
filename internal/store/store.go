// Package store defines the persistence contract shared by the Postgres and
// in-memory backends. Implementations report failures using apperr kinds so
// the layers above never see driver errors.
package store

import (
	"context"

	"github.com/flockly/event-platform/internal/model"
)

// QueryStore owns query threads and their append-only message history.
type QueryStore interface {
	// CreateQuery persists a fully-populated query thread.
	CreateQuery(ctx context.Context, q *model.Query) error

	// GetQuery returns the thread with all messages in append order.
	GetQuery(ctx context.Context, id string) (*model.Query, error)

	// ListQueries returns threads matching the filter, most recently
	// updated first. An empty filter means all threads.
	ListQueries(ctx context.Context, filter model.QueryFilter) ([]model.Query, error)

	// AppendMessage durably appends one message and refreshes the thread's
	// updatedAt. The write is atomic: concurrent appends to the same thread
	// are both preserved in commit order.
	AppendMessage(ctx context.Context, queryID string, msg model.Message) (model.Message, error)

	// SetQueryStatus transitions a thread between open and closed.
	SetQueryStatus(ctx context.Context, queryID string, status model.QueryStatus) error
}

// EventStore owns event records and their capacity counters.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListEventsByManager(ctx context.Context, managerID string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// RegistrationStore owns registrations and the admission decision.
type RegistrationStore interface {
	// Admit runs the whole admission as one serialized decision: event
	// lookup, duplicate check against the lower-cased email, capacity
	// guard, counter increment and registration insert. Two concurrent
	// admissions for the same event can never both pass a stale capacity
	// check.
	Admit(ctx context.Context, reg *model.Registration) error

	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// Store is the full persistence surface consumed by the service layer.
type Store interface {
	QueryStore
	EventStore
	RegistrationStore
}
