package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventflow/internal/domain"
)

type eventRegistrationRepository struct {
	DB Querier
}

func NewEventRegistrationRepository(db Querier) domain.EventRegistrationRepository {
	return &eventRegistrationRepository{
		DB: db,
	}
}

const registrationColumns = `id, event_id, user_id, attended, checked_in_at, created_at, updated_at`

func scanRegistration(row rowScanner) (*domain.EventRegistration, error) {
	reg := &domain.EventRegistration{}
	var checkedIn sql.NullTime
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Attended, &checkedIn, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if checkedIn.Valid {
		reg.CheckedInAt = &checkedIn.Time
	}
	return reg, nil
}

func (r *eventRegistrationRepository) Create(ctx context.Context, reg *domain.EventRegistration) error {
	query := `
		INSERT INTO event_registrations (event_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, reg.EventID, reg.UserID, reg.CreatedAt, reg.UpdatedAt).
		Scan(&reg.ID)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyRegistered
	}
	return err
}

func (r *eventRegistrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE event_id = $1 AND user_id = $2`
	return scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, userID))
}

func (r *eventRegistrationRepository) Delete(ctx context.Context, eventID, userID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRegistrationRepository) ListByEventID(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.EventRegistration, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs := make([]*domain.EventRegistration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *eventRegistrationRepository) MarkAttended(ctx context.Context, eventID, userID string, at time.Time) (*domain.EventRegistration, error) {
	query := `
		UPDATE event_registrations
		SET attended = TRUE, checked_in_at = $3, updated_at = $3
		WHERE event_id = $1 AND user_id = $2
		RETURNING ` + registrationColumns
	return scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, userID, at))
}
