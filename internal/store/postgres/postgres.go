// Package postgres implements the store against PostgreSQL using pgx
// directly (no ORM).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed store.
type Store struct {
	db *pgxpool.Pool
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id               text PRIMARY KEY,
		manager_id       text NOT NULL DEFAULT '',
		name             text NOT NULL,
		description      text NOT NULL DEFAULT '',
		venue            text NOT NULL DEFAULT '',
		starts_at        timestamptz NOT NULL,
		capacity         int NOT NULL,
		registered_count int NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL,
		updated_at       timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registrations (
		id               text PRIMARY KEY,
		event_id         text NOT NULL REFERENCES events(id),
		name             text NOT NULL,
		email            text NOT NULL,
		phone_number     text NOT NULL DEFAULT '',
		proof_of_payment text NOT NULL DEFAULT '',
		registered_at    timestamptz NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS registrations_event_email
		ON registrations (event_id, lower(email))`,
	`CREATE TABLE IF NOT EXISTS queries (
		id         text PRIMARY KEY,
		event_id   text NOT NULL,
		event_name text NOT NULL DEFAULT '',
		user_id    text NOT NULL DEFAULT '',
		user_name  text NOT NULL DEFAULT '',
		status     text NOT NULL DEFAULT 'open',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS queries_event_idx ON queries (event_id)`,
	`CREATE INDEX IF NOT EXISTS queries_user_idx ON queries (user_id)`,
	`CREATE TABLE IF NOT EXISTS query_messages (
		seq        bigserial PRIMARY KEY,
		id         text NOT NULL,
		query_id   text NOT NULL REFERENCES queries(id),
		sender     text NOT NULL,
		body       text NOT NULL,
		created_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS query_messages_query_idx ON query_messages (query_id, seq)`,
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
