// Package memory provides an in-memory store implementation. It backs tests
// and local development; the Postgres store is the production backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
)

// Store keeps everything in maps guarded by a single mutex. The lock also
// serializes registration admission, which keeps the capacity counter safe
// under concurrent registration attempts.
type Store struct {
	mu sync.RWMutex

	queries    map[string]*model.Query
	queryOrder []string

	events     map[string]*model.Event
	eventOrder []string

	registrations map[string][]model.Registration
	regIndex      map[string]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		queries:       make(map[string]*model.Query),
		events:        make(map[string]*model.Event),
		registrations: make(map[string][]model.Registration),
		regIndex:      make(map[string]struct{}),
	}
}

func copyQuery(q *model.Query) *model.Query {
	out := *q
	out.Messages = make([]model.Message, len(q.Messages))
	copy(out.Messages, q.Messages)
	return &out
}

// CreateQuery stores a new query thread.
func (s *Store) CreateQuery(ctx context.Context, q *model.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries[q.ID] = copyQuery(q)
	s.queryOrder = append(s.queryOrder, q.ID)
	return nil
}

// GetQuery returns a thread with all messages in append order.
func (s *Store) GetQuery(ctx context.Context, id string) (*model.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.queries[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "query not found")
	}
	return copyQuery(q), nil
}

// ListQueries returns threads matching the filter, most recently updated
// first. Ties keep creation order.
func (s *Store) ListQueries(ctx context.Context, filter model.QueryFilter) ([]model.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Query, 0)
	for _, id := range s.queryOrder {
		q := s.queries[id]
		if filter.EventID != "" && q.EventID.String() != filter.EventID {
			continue
		}
		if filter.UserID != "" && q.UserID.String() != filter.UserID {
			continue
		}
		out = append(out, *copyQuery(q))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// AppendMessage appends one message under the store lock and refreshes the
// thread's updatedAt.
func (s *Store) AppendMessage(ctx context.Context, queryID string, msg model.Message) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[queryID]
	if !ok {
		return model.Message{}, apperr.New(apperr.KindNotFound, "query not found")
	}

	q.Messages = append(q.Messages, msg)
	q.UpdatedAt = msg.CreatedAt
	return msg, nil
}

// SetQueryStatus transitions a thread between open and closed.
func (s *Store) SetQueryStatus(ctx context.Context, queryID string, status model.QueryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[queryID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "query not found")
	}
	q.Status = status
	q.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateEvent stores a new event.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.events[e.ID] = &cp
	s.eventOrder = append(s.eventOrder, e.ID)
	return nil
}

// GetEvent returns an event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "event not found")
	}
	cp := *e
	return &cp, nil
}

// ListEvents returns all events, newest first.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.listEvents(""), nil
}

// ListEventsByManager returns a manager's events, newest first.
func (s *Store) ListEventsByManager(ctx context.Context, managerID string) ([]model.Event, error) {
	return s.listEvents(managerID), nil
}

func (s *Store) listEvents(managerID string) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0)
	for i := len(s.eventOrder) - 1; i >= 0; i-- {
		e := s.events[s.eventOrder[i]]
		if managerID != "" && e.ManagerID != managerID {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// UpdateEvent replaces a stored event's mutable fields. The registered count
// is deliberately preserved from the stored row: only Admit may touch it, so
// an admission landing between the caller's read and this write survives.
func (s *Store) UpdateEvent(ctx context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.events[e.ID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "event not found")
	}
	cp := *e
	cp.RegisteredCount = cur.RegisteredCount
	s.events[e.ID] = &cp
	return nil
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return apperr.New(apperr.KindNotFound, "event not found")
	}
	delete(s.events, id)
	for i, eid := range s.eventOrder {
		if eid == id {
			s.eventOrder = append(s.eventOrder[:i], s.eventOrder[i+1:]...)
			break
		}
	}
	return nil
}

func regKey(eventID, email string) string {
	return eventID + "\x00" + strings.ToLower(email)
}

// Admit runs the admission decision under the store lock: duplicate check,
// capacity guard, counter increment, registration insert.
func (s *Store) Admit(ctx context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventID := reg.EventID.String()
	e, ok := s.events[eventID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "event not found")
	}

	if _, dup := s.regIndex[regKey(eventID, reg.Email)]; dup {
		return apperr.New(apperr.KindDuplicateRegistration, "you have already registered for this event")
	}

	if e.RegisteredCount >= e.Capacity {
		return apperr.New(apperr.KindCapacityExceeded, "sorry, this event is full, registration is closed")
	}

	e.RegisteredCount++
	s.registrations[eventID] = append(s.registrations[eventID], *reg)
	s.regIndex[regKey(eventID, reg.Email)] = struct{}{}
	return nil
}

// ListRegistrationsByEvent returns registrations in admission order.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := s.registrations[eventID]
	out := make([]model.Registration, len(regs))
	copy(out, regs)
	return out, nil
}
