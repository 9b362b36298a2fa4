package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventflow/internal/domain"
)

type eventRepository struct {
	DB Querier
}

func NewEventRepository(db Querier) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, title, description, location, organizer_id, organizer_email, capacity,
		registration_count, status, rejection_reason, start_time, end_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var reasonNull sql.NullString
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.OrganizerID, &e.OrganizerEmail, &e.Capacity,
		&e.RegistrationCount, &e.Status, &reasonNull, &e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if reasonNull.Valid {
		e.RejectionReason = &reasonNull.String
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, location, organizer_id, organizer_email, capacity,
			registration_count, status, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Location, e.OrganizerID, e.OrganizerEmail, e.Capacity,
		e.Status, e.StartTime, e.EndTime, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus, rejectionReason *string, at time.Time) (*domain.Event, error) {
	query := `
		UPDATE events
		SET status = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.DB.QueryRowContext(ctx, query, id, status, nullString(rejectionReason), at))
}

func (r *eventRepository) UpdateDetails(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	query := `
		UPDATE events
		SET title = $2, description = $3, location = $4, capacity = $5, start_time = $6, end_time = $7, updated_at = $8
		WHERE id = $1
		RETURNING ` + eventColumns
	updated, err := scanEvent(r.DB.QueryRowContext(ctx, query,
		e.ID, e.Title, e.Description, e.Location, e.Capacity, e.StartTime, e.EndTime, e.UpdatedAt,
	))
	if isCheckViolation(err) {
		return nil, fmt.Errorf("%w: capacity %d is below the current registrations", domain.ErrValidation, e.Capacity)
	}
	return updated, err
}

func (r *eventRepository) List(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]*domain.Event, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.OrganizerID != "" {
		args = append(args, f.OrganizerID)
		conds = append(conds, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where +
		fmt.Sprintf(` ORDER BY start_time ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, p.PageSize, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListLedgerCounts(ctx context.Context) ([]domain.LedgerCount, error) {
	query := `
		SELECT e.id, e.capacity, e.registration_count, COUNT(er.id)
		FROM events e
		LEFT JOIN event_registrations er ON er.event_id = e.id
		GROUP BY e.id
		ORDER BY e.id
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]domain.LedgerCount, 0)
	for rows.Next() {
		var c domain.LedgerCount
		if err := rows.Scan(&c.EventID, &c.Capacity, &c.Recorded, &c.Actual); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
