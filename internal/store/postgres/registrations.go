package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
)

// Admit performs a concurrency-safe admission inside a serialized transaction.
//
// A naive read-then-write pattern is broken here: two concurrent admissions
// can both read the same stale registered_count, both pass the capacity
// check, and overbook the event. SELECT ... FOR UPDATE takes a row-level
// exclusive lock on the event the moment the read executes, so concurrent
// admissions for the same event queue up behind the lock and each one sees
// the count left by the previous commit.
func (s *Store) Admit(ctx context.Context, reg *model.Registration) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to register", err)
	}
	defer tx.Rollback(ctx)

	eventID := reg.EventID.String()

	var capacity, registered int
	err = tx.QueryRow(ctx,
		`SELECT capacity, registered_count
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &registered)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "event not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to register", err)
	}

	var dup int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND lower(email) = $2`,
		eventID, strings.ToLower(reg.Email),
	).Scan(&dup)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to register", err)
	}
	if dup > 0 {
		return apperr.New(apperr.KindDuplicateRegistration, "you have already registered for this event")
	}

	if registered >= capacity {
		return apperr.New(apperr.KindCapacityExceeded, "sorry, this event is full, registration is closed")
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + 1 WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to register", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, name, email, phone_number, proof_of_payment, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reg.ID, eventID, reg.Name, reg.Email, reg.PhoneNumber, reg.ProofOfPayment, reg.RegisteredAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to register", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to register", err)
	}
	return nil
}

// ListRegistrationsByEvent returns registrations in admission order.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, event_id, name, email, phone_number, proof_of_payment, registered_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list registrations", err)
	}
	defer rows.Close()

	regs := make([]model.Registration, 0)
	for rows.Next() {
		var reg model.Registration
		var eid string
		if err := rows.Scan(&reg.ID, &eid, &reg.Name, &reg.Email, &reg.PhoneNumber, &reg.ProofOfPayment, &reg.RegisteredAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to list registrations", err)
		}
		reg.EventID = model.Ref(eid)
		regs = append(regs, reg)
	}
	if rows.Err() != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list registrations", rows.Err())
	}
	return regs, nil
}
