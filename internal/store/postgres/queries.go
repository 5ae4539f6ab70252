package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
)

// CreateQuery inserts a thread and any seeded messages in one transaction.
func (s *Store) CreateQuery(ctx context.Context, q *model.Query) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create query", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO queries (id, event_id, event_name, user_id, user_name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.EventID.String(), q.EventName, q.UserID.String(), q.UserName, string(q.Status), q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create query", err)
	}

	for _, m := range q.Messages {
		_, err = tx.Exec(ctx,
			`INSERT INTO query_messages (id, query_id, sender, body, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			m.ID, q.ID, string(m.Sender), m.Text, m.CreatedAt,
		)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to create query", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create query", err)
	}
	return nil
}

// GetQuery returns the thread with messages in append order.
func (s *Store) GetQuery(ctx context.Context, id string) (*model.Query, error) {
	var q model.Query
	var eventID, userID, status string
	err := s.db.QueryRow(ctx,
		`SELECT id, event_id, event_name, user_id, user_name, status, created_at, updated_at
		 FROM queries WHERE id = $1`,
		id,
	).Scan(&q.ID, &eventID, &q.EventName, &userID, &q.UserName, &status, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "query not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get query", err)
	}
	q.EventID = model.Ref(eventID)
	q.UserID = model.Ref(userID)
	q.Status = model.QueryStatus(status)

	msgs, err := s.loadMessages(ctx, []string{q.ID})
	if err != nil {
		return nil, err
	}
	q.Messages = msgs[q.ID]
	if q.Messages == nil {
		q.Messages = []model.Message{}
	}
	return &q, nil
}

// ListQueries returns threads matching the filter, most recently updated first.
func (s *Store) ListQueries(ctx context.Context, filter model.QueryFilter) ([]model.Query, error) {
	sql := `SELECT id, event_id, event_name, user_id, user_name, status, created_at, updated_at
		 FROM queries`
	var args []any
	var where []string
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		where = append(where, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			sql += " WHERE " + cond
		} else {
			sql += " AND " + cond
		}
	}
	sql += " ORDER BY updated_at DESC, created_at ASC"

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list queries", err)
	}
	defer rows.Close()

	queries := make([]model.Query, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var q model.Query
		var eventID, userID, status string
		if err := rows.Scan(&q.ID, &eventID, &q.EventName, &userID, &q.UserName, &status, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to list queries", err)
		}
		q.EventID = model.Ref(eventID)
		q.UserID = model.Ref(userID)
		q.Status = model.QueryStatus(status)
		q.Messages = []model.Message{}
		queries = append(queries, q)
		ids = append(ids, q.ID)
	}
	if rows.Err() != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list queries", rows.Err())
	}
	if len(ids) == 0 {
		return queries, nil
	}

	msgs, err := s.loadMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range queries {
		if m := msgs[queries[i].ID]; m != nil {
			queries[i].Messages = m
		}
	}
	return queries, nil
}

func (s *Store) loadMessages(ctx context.Context, queryIDs []string) (map[string][]model.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT query_id, id, sender, body, created_at
		 FROM query_messages
		 WHERE query_id = ANY($1)
		 ORDER BY seq ASC`,
		queryIDs,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load messages", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Message)
	for rows.Next() {
		var queryID, sender string
		var m model.Message
		if err := rows.Scan(&queryID, &m.ID, &sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to load messages", err)
		}
		m.Sender = model.Sender(sender)
		out[queryID] = append(out[queryID], m)
	}
	return out, rows.Err()
}

// AppendMessage inserts the message and bumps updated_at in one transaction.
// Appends never rewrite the message list, so concurrent appends to the same
// thread are both preserved in commit order.
func (s *Store) AppendMessage(ctx context.Context, queryID string, msg model.Message) (model.Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Message{}, apperr.Wrap(apperr.KindInternal, "failed to append message", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE queries SET updated_at = $2 WHERE id = $1`,
		queryID, msg.CreatedAt,
	)
	if err != nil {
		return model.Message{}, apperr.Wrap(apperr.KindInternal, "failed to append message", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Message{}, apperr.New(apperr.KindNotFound, "query not found")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO query_messages (id, query_id, sender, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, queryID, string(msg.Sender), msg.Text, msg.CreatedAt,
	)
	if err != nil {
		return model.Message{}, apperr.Wrap(apperr.KindInternal, "failed to append message", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Message{}, apperr.Wrap(apperr.KindInternal, "failed to append message", err)
	}
	return msg, nil
}

// SetQueryStatus transitions a thread between open and closed.
func (s *Store) SetQueryStatus(ctx context.Context, queryID string, status model.QueryStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE queries SET status = $2, updated_at = $3 WHERE id = $1`,
		queryID, string(status), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update query", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "query not found")
	}
	return nil
}
