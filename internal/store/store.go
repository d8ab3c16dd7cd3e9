// Package store is the transactional counter ledger. Every mutation of a
// post's aggregate metrics goes through Transact; nothing in the application
// reads a counter, adds to it in memory and writes it back.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"careervivid/internal/middleware"
	"careervivid/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMaxRetries = 3

// ErrRowConflict marks a read-then-write race detected inside a transaction
// (e.g. the like row vanished between snapshot and delete). It is retryable.
var ErrRowConflict = errors.New("store: row changed during transaction")

// TxFn runs with a transactional handle. All reads and writes issued through
// tx commit or roll back together.
type TxFn func(tx *gorm.DB) error

// Store wraps a gorm DB with bounded-retry transaction semantics.
type Store struct {
	db         *gorm.DB
	maxRetries int
}

// New creates a Store with the default retry budget.
func New(db *gorm.DB) *Store {
	return &Store{db: db, maxRetries: defaultMaxRetries}
}

// NewWithRetries creates a Store with a custom retry budget (used in tests).
func NewWithRetries(db *gorm.DB, retries int) *Store {
	return &Store{db: db, maxRetries: retries}
}

// DB exposes the underlying handle for non-counter reads.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transact runs fn inside a database transaction, retrying up to the budget
// when the failure is contention (serialization failure, deadlock, duplicate
// key from a concurrent writer, or a detected row conflict). After exhaustion
// the last error is returned wrapped so callers can map it to Aborted.
// operation labels the retry metrics.
func (s *Store) Transact(ctx context.Context, operation string, fn TxFn) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			observability.CounterTxnRetries.WithLabelValues(operation).Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
			}
		}

		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx)
		})
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		middleware.Logger.WarnContext(ctx, "counter transaction conflict, retrying",
			"operation", operation, "attempt", attempt+1, "error", lastErr.Error())
	}

	observability.CounterTxnAborts.WithLabelValues(operation).Inc()
	return &AbortedError{Operation: operation, Err: lastErr}
}

// AbortedError reports a transaction that exhausted its retry budget.
type AbortedError struct {
	Operation string
	Err       error
}

func (e *AbortedError) Error() string {
	return "store: " + e.Operation + " aborted after retries: " + e.Err.Error()
}

func (e *AbortedError) Unwrap() error { return e.Err }

// IsAborted reports whether err is a retry-exhausted transaction.
func IsAborted(err error) bool {
	var aborted *AbortedError
	return errors.As(err, &aborted)
}

// IsRetryable classifies transaction failures that are safe to re-attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRowConflict) {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"23505": // unique_violation from a concurrent writer
			return true
		}
	}

	// SQLite (test profile) reports writer contention as a busy/locked error.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "UNIQUE constraint failed")
}

// LockForUpdate appends a row lock on dialects that support it. SQLite has a
// single writer, so the clause is omitted there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
