// Package dbopen opens the SQLite databases of taptarget.
//
// Pragmas travel in the DSN so that every pooled connection gets them, not
// only the first one. The caller blank-imports the driver:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("tapaudit.db", dbopen.WithSchema(store.Schema))
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const memory = ":memory:"

type options struct {
	driver  string
	pragmas map[string]string
	order   []string
	mkdir   bool
	ddl     []string
}

func (o *options) pragma(name, value string) {
	if _, ok := o.pragmas[name]; !ok {
		o.order = append(o.order, name)
	}
	o.pragmas[name] = value
}

// Option customises Open.
type Option func(*options)

// WithDriver overrides the database/sql driver name ("sqlite").
func WithDriver(name string) Option { return func(o *options) { o.driver = name } }

// WithBusyTimeout sets busy_timeout in milliseconds (10000).
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.pragma("busy_timeout", fmt.Sprint(ms)) }
}

// WithMkdirAll creates the parent directory of a file database.
func WithMkdirAll() Option { return func(o *options) { o.mkdir = true } }

// WithSchema adds DDL run once the database is open. Schemas run in the
// order given.
func WithSchema(ddl string) Option { return func(o *options) { o.ddl = append(o.ddl, ddl) } }

// Open opens path with WAL, foreign keys, NORMAL sync and a busy timeout,
// then runs the schemas.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := &options{driver: "sqlite", pragmas: map[string]string{}}
	o.pragma("foreign_keys", "1")
	o.pragma("journal_mode", "WAL")
	o.pragma("synchronous", "NORMAL")
	o.pragma("busy_timeout", "10000")
	for _, opt := range opts {
		opt(o)
	}

	if o.mkdir && path != memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir %s: %w", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open(o.driver, o.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}
	if path == memory {
		// A second connection would see a different, empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
	}
	for i, ddl := range o.ddl {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: schema %d: %w", i, err)
		}
	}
	return db, nil
}

func (o *options) dsn(path string) string {
	parts := make([]string, 0, len(o.order))
	for _, name := range o.order {
		parts = append(parts, fmt.Sprintf("_pragma=%s(%s)", name, o.pragmas[name]))
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(parts, "&")
}

// OpenMemory opens a private in-memory database closed at test cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(memory, opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
