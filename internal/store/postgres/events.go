package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
)

const eventColumns = `id, manager_id, name, description, venue, starts_at, capacity, registered_count, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.ManagerID, &e.Name, &e.Description, &e.Venue,
		&e.StartsAt, &e.Capacity, &e.RegisteredCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent inserts a new event.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.ManagerID, e.Name, e.Description, e.Venue,
		e.StartsAt, e.Capacity, e.RegisteredCount, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create event", err)
	}
	return nil
}

// GetEvent returns a single event.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "event not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get event", err)
	}
	return e, nil
}

// ListEvents returns all events, newest first.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.listEvents(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
}

// ListEventsByManager returns a manager's events, newest first.
func (s *Store) ListEventsByManager(ctx context.Context, managerID string) ([]model.Event, error) {
	return s.listEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE manager_id = $1 ORDER BY created_at DESC`,
		managerID)
}

func (s *Store) listEvents(ctx context.Context, sql string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list events", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to list events", err)
		}
		events = append(events, *e)
	}
	if rows.Err() != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list events", rows.Err())
	}
	return events, nil
}

// UpdateEvent replaces an event's mutable fields. The registered_count column
// is deliberately excluded: only Admit may touch it.
func (s *Store) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE events
		 SET name = $2, description = $3, venue = $4, starts_at = $5, capacity = $6, updated_at = $7
		 WHERE id = $1`,
		e.ID, e.Name, e.Description, e.Venue, e.StartsAt, e.Capacity, e.UpdatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update event", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "event not found")
	}
	return nil
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "event not found")
	}
	return nil
}
