package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventflow/internal/domain"
)

// capacityLedger keeps events.registration_count. Reserve and release are single
// conditional UPDATE statements, so the bound holds without an application-side read.
type capacityLedger struct {
	DB Querier
}

func NewCapacityLedger(db Querier) domain.CapacityLedger {
	return &capacityLedger{DB: db}
}

func (l *capacityLedger) exists(ctx context.Context, eventID string) (bool, error) {
	var ok bool
	err := l.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&ok)
	return ok, err
}

func (l *capacityLedger) TryReserve(ctx context.Context, eventID string) (int, error) {
	query := `
		UPDATE events
		SET registration_count = registration_count + 1
		WHERE id = $1 AND (capacity = 0 OR registration_count < capacity)
		RETURNING registration_count
	`
	var count int
	err := l.DB.QueryRowContext(ctx, query, eventID).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	ok, err := l.exists(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrCapacityExceeded
}

func (l *capacityLedger) Release(ctx context.Context, eventID string) (int, error) {
	query := `
		UPDATE events
		SET registration_count = registration_count - 1
		WHERE id = $1 AND registration_count > 0
		RETURNING registration_count
	`
	var count int
	err := l.DB.QueryRowContext(ctx, query, eventID).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	ok, err := l.exists(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrLedgerUnderflow
}

func (l *capacityLedger) Recount(ctx context.Context, eventID string) (int, int, error) {
	var before int
	err := l.DB.QueryRowContext(ctx, `SELECT registration_count FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&before)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, domain.ErrNotFound
		}
		return 0, 0, err
	}
	query := `
		UPDATE events
		SET registration_count = (SELECT COUNT(*) FROM event_registrations WHERE event_id = $1)
		WHERE id = $1
		RETURNING registration_count
	`
	var after int
	if err := l.DB.QueryRowContext(ctx, query, eventID).Scan(&after); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}
