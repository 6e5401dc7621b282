package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/feedstream/internal/config"
	"github.com/rickgao/feedstream/internal/eventlog"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventStore appends event log entries to a table. It implements
// eventlog.Destination.
type EventStore struct {
	db     Execer
	table  string // sanitized identifier
	closer func()
}

var _ eventlog.Destination = (*EventStore)(nil)

// NewEventStore creates a store writing to table through db.
func NewEventStore(db Execer, table string) *EventStore {
	if table == "" {
		table = config.DefaultEventTable
	}
	return &EventStore{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

// OpenEventStore connects to cfg and makes sure the table exists. The pool
// is closed by Close.
func OpenEventStore(ctx context.Context, cfg config.PostgresConfig) (*EventStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewEventStore(pool, cfg.Table)
	s.closer = pool.Close

	if err := s.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureTable creates the event table if it does not exist.
func (s *EventStore) EnsureTable(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id        BIGSERIAL PRIMARY KEY,
	source    TEXT        NOT NULL,
	message   TEXT        NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL
)`, s.table)

	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Write inserts one entry.
func (s *EventStore) Write(ctx context.Context, e eventlog.Entry) error {
	sql := fmt.Sprintf(`INSERT INTO %s (source, message, logged_at) VALUES ($1, $2, $3)`, s.table)
	if _, err := s.db.Exec(ctx, sql, e.Source, e.Message, e.Time); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Close releases the pool if the store owns one.
func (s *EventStore) Close() error {
	if s.closer != nil {
		s.closer()
		s.closer = nil
	}
	return nil
}
