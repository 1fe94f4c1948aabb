package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// txAttempts bounds RunTx; attempt n waits n*txBackoff before retrying.
const (
	txAttempts = 3
	txBackoff  = 100 * time.Millisecond
)

// IsBusy reports whether err means the database or a table was locked by
// another writer.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RunTx runs fn inside a transaction and commits it. A busy database is
// retried with a linear backoff; any other error from fn rolls back and is
// returned as is.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = tryTx(ctx, db, fn); err == nil || !IsBusy(err) || attempt == txAttempts {
			return err
		}
		t := time.NewTimer(time.Duration(attempt) * txBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: tx retry: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func tryTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
