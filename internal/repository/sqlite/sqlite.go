// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: a single file next to the binary, no server
// to run. ":memory:" gives every test its own throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 needs CGo and a C compiler. modernc.org/sqlite is a pure Go
// translation of SQLite, so the binary cross-compiles like any other Go code.
//
// WHY sqlx?
// database/sql makes you Scan every column by hand. sqlx adds struct scanning
// (GetContext / SelectContext) driven by the `db:"..."` tags in internal/model,
// while keeping the database/sql types underneath. Both *sqlx.DB and *sqlx.Tx
// satisfy sqlx.ExtContext, so every query method is written once and runs
// either on the pool or inside a transaction.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/bookifyme/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// dropSQL removes every table, children first.
const dropSQL = `
	DROP TABLE IF EXISTS group_members;
	DROP TABLE IF EXISTS reading_groups;
	DROP TABLE IF EXISTS bookshelves;
	DROP TABLE IF EXISTS books;
	DROP TABLE IF EXISTS users;
`

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	_ repository.UserRepository      = (*DB)(nil)
	_ repository.BookshelfRepository = (*DB)(nil)
	_ repository.GroupRepository     = (*DB)(nil)
)

// queries holds every SQL statement. ext is either the pool or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

// DB is the SQLite-backed store. Its embedded queries run on the connection
// pool; the In*Tx methods hand out a queries value bound to a transaction.
type DB struct {
	*queries
	conn *sqlx.DB
	path string
}

// New opens (creating if needed) the database at dbPath and applies the
// schema.
//
// dbPath examples:
//   - "data/bookifyme.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
//
// Foreign keys and the busy timeout are per-connection settings in SQLite, so
// they go into the DSN and apply to every pooled connection.
func New(dbPath string) (*DB, error) {
	if dbPath != MemoryPath {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: creating data directory: %w", err)
			}
		}
	}

	conn, err := sqlx.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == MemoryPath {
		// Each connection to ":memory:" is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(time.Hour)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. It is a
	// property of the file, so setting it once is enough.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{queries: &queries{ext: conn}, conn: conn, path: dbPath}
	if err := db.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// DSN appends the connection pragmas to path. Times are written in SQLite's
// own "YYYY-MM-DD HH:MM:SS+00:00" form so they compare correctly as text.
// Transactions take the write lock at BEGIN so that two read-then-write
// transactions queue on busy_timeout instead of failing on lock upgrade.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite&_txlock=immediate"
}

// Path returns the path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate applies the embedded schema. Every statement is
// CREATE ... IF NOT EXISTS, so running it twice is harmless.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("sqlite: applying schema: %w", err)
	}
	return nil
}

// Reset drops every table and recreates the schema. All data is lost.
func (db *DB) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("sqlite: dropping tables: %w", err)
	}
	return db.Migrate(ctx)
}

// InBookshelfTx runs fn inside a transaction.
func (db *DB) InBookshelfTx(ctx context.Context, fn func(q repository.BookshelfQueries) error) error {
	return db.inTx(ctx, func(q *queries) error { return fn(q) })
}

// InGroupTx runs fn inside a transaction.
func (db *DB) InGroupTx(ctx context.Context, fn func(q repository.GroupQueries) error) error {
	return db.inTx(ctx, func(q *queries) error { return fn(q) })
}

// inTx commits when fn returns nil and rolls back otherwise. The deferred
// Rollback is a no-op after a successful Commit.
func (db *DB) inTx(ctx context.Context, fn func(q *queries) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{ext: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// timestamp normalises t for storage: UTC, whole seconds.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// affectedOne turns "zero rows affected" into notFound.
func affectedOne(res interface{ RowsAffected() (int64, error) }, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s: checking rows affected: %w", op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
