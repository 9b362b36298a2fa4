package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventflow/internal/domain"

	"github.com/lib/pq"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// PostgreSQL error codes the store translates.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pqCode(err error) string {
	var perr *pq.Error
	if errors.As(err, &perr) {
		return string(perr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

func isCheckViolation(err error) bool {
	return pqCode(err) == codeCheckViolation
}

// translate maps driver failures onto the domain taxonomy. Errors that already
// carry a domain kind pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch pqCode(err) {
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %v", domain.ErrBusy, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// Store is the PostgreSQL domain.Store.
type Store struct {
	DB          *sql.DB
	LockTimeout time.Duration
	repos
}

// NewStore wraps db. lockTimeout bounds row-lock waits inside transactions; zero leaves the server default.
func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{DB: db, LockTimeout: lockTimeout, repos: repos{q: db}}
}

var _ domain.Store = (*Store)(nil)

type repos struct {
	q Querier
}

func (r repos) Events() domain.EventRepository                     { return NewEventRepository(r.q) }
func (r repos) Ledger() domain.CapacityLedger                      { return NewCapacityLedger(r.q) }
func (r repos) Registrations() domain.EventRegistrationRepository { return NewEventRegistrationRepository(r.q) }
func (r repos) Reports() domain.EventReportRepository              { return NewEventReportRepository(r.q) }
func (r repos) Audit() domain.AuditLog                             { return NewAuditLog(r.q) }

// WithinTx runs fn in a transaction and commits when fn succeeds and ctx is live.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return translate(fmt.Errorf("begin tx: %w", err))
	}
	if s.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return translate(fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	if err := fn(repos{q: tx}); err != nil {
		_ = tx.Rollback()
		return translate(err)
	}
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}
