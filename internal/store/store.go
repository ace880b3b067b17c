// Package store wraps an embedded SQLite-compatible database (spec.md
// §4.3): schema migrations, FTS5 mirrors, and multi-tenant scoping live
// here. The packages that read and write entity data (internal/repo,
// internal/links, internal/audit) go through this package's Execute/Query
// surface rather than opening their own connection; internal/doclake and
// internal/sourcestore open their own catalog databases. Mirrors the teacher's
// internal/storage/sqlite package boundary.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"go.opentelemetry.io/otel"

	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/zerr"
)

var tracer = otel.Tracer("github.com/zenith-dev/zenith/internal/store")

// Store is the local embedded SQL store. It is safe for concurrent use; the
// underlying engine serializes writes (spec.md §5, "Shared resources").
type Store struct {
	db *sql.DB
	mu sync.Mutex // guards schema migration, not per-statement execution
}

// Open opens (creating if absent) the SQLite database at path and runs all
// pending migrations idempotently.
func Open(ctx context.Context, path string) (*Store, error) {
	connStr := ConnString(path, false)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, zerr.Wrap("store: open", err)
	}
	db.SetMaxOpenConns(1) // single-writer embedded engine; serialize at the pool level
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing database without running migrations, used
// by the cross-repo/orphan-detection style read paths (grounded on the
// teacher's internal/storage/local_provider.go).
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite", ConnString(path, true))
	if err != nil {
		return nil, zerr.Wrap("store: open read-only", err)
	}
	return &Store{db: db}, nil
}

// ConnString builds a modernc.org/sqlite DSN with sane defaults: foreign
// keys on, a busy timeout so concurrent readers don't spuriously fail, and
// (optionally) immutable/read-only mode.
func ConnString(path string, readOnly bool) string {
	if readOnly {
		return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw *sql.DB for packages that need to compose transactions
// spanning multiple repositories (e.g. internal/repo's study composites).
func (s *Store) DB() *sql.DB { return s.db }

// Execute runs a statement with no result set.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	_, span := tracer.Start(ctx, "store.Execute")
	defer span.End()
	res, err := s.db.ExecContext(ctx, query, args...)
	return res, zerr.Wrap("store: execute", err)
}

// ExecuteWith runs a statement against an explicit connection (used for
// transactional composites that must share one connection across calls).
func (s *Store) ExecuteWith(ctx context.Context, conn *sql.Conn, query string, args ...any) (sql.Result, error) {
	res, err := conn.ExecContext(ctx, query, args...)
	return res, zerr.Wrap("store: execute_with", err)
}

// Query runs a statement returning rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	_, span := tracer.Start(ctx, "store.Query")
	defer span.End()
	rows, err := s.db.QueryContext(ctx, query, args...)
	return rows, zerr.Wrap("store: query", err)
}

// QueryRow runs a statement expected to return at most one row.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// Conn acquires a dedicated connection, for callers that need several
// statements to observe the same transaction (spec.md §4.5 study composites).
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}

// GenerateID mints a new identifier with the given prefix, delegating to
// internal/ids. Exposed here so repositories don't need a second import for
// what is, from their point of view, a store primitive.
func (s *Store) GenerateID(prefix ids.Prefix) string {
	return ids.Generate(prefix)
}
