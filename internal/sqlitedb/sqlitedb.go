// Package sqlitedb provides an embedded SQLite store with the same contract as the
// PostgreSQL store, for single-user local runs and tests.
package sqlitedb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps a SQLite database handle
type DB struct {
	db  *sql.DB
	now func() time.Time

	clockMu sync.Mutex
	last    int64
}

// Open opens the database at path, creating the schema if needed.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; an in-memory database exists per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	db := &DB{db: sqlDB, now: time.Now}
	if err := db.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema. It is safe to run repeatedly.
func (s *DB) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return nil
}

// Ping checks that the database is usable
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *DB) Close() error {
	return s.db.Close()
}

// timestamp returns a strictly increasing clock reading in unix nanoseconds so that
// recency ordering is stable even for writes within the same clock tick.
func (s *DB) timestamp() int64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	ts := s.now().UnixNano()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}

func fromUnix(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
