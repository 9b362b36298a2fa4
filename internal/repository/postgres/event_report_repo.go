package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventflow/internal/domain"

	"github.com/lib/pq"
)

type eventReportRepository struct {
	DB Querier
}

func NewEventReportRepository(db Querier) domain.EventReportRepository {
	return &eventReportRepository{
		DB: db,
	}
}

const reportColumns = `id, event_id, summary, outcomes, challenges, recommendations, attendees, attachments,
		status, rejection_reason, revision_reason, revision_requested_by, revision_requested_at,
		submitted_by, submitted_by_email, submitted_at, reviewed_by, reviewed_at, created_at, updated_at`

func scanReport(row rowScanner) (*domain.EventReport, error) {
	rep := &domain.EventReport{}
	var (
		rejection, revReason, revBy, reviewedBy sql.NullString
		revAt, reviewedAt                       sql.NullTime
		attachments                             []string
	)
	err := row.Scan(
		&rep.ID, &rep.EventID, &rep.Content.Summary, &rep.Content.Outcomes, &rep.Content.Challenges,
		&rep.Content.Recommendations, &rep.Content.Attendees, pq.Array(&attachments),
		&rep.Status, &rejection, &revReason, &revBy, &revAt,
		&rep.SubmittedBy, &rep.SubmittedByEmail, &rep.SubmittedAt, &reviewedBy, &reviewedAt, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(attachments) > 0 {
		rep.Content.Attachments = attachments
	}
	if rejection.Valid {
		rep.RejectionReason = &rejection.String
	}
	if revReason.Valid {
		rep.RevisionRequest = &domain.RevisionRequest{
			Reason:      revReason.String,
			RequestedBy: revBy.String,
			RequestedAt: revAt.Time,
		}
	}
	if reviewedBy.Valid {
		rep.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		rep.ReviewedAt = &reviewedAt.Time
	}
	rep.Refresh()
	return rep, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func revisionColumns(r *domain.EventReport) (sql.NullString, sql.NullString, sql.NullTime) {
	if r.RevisionRequest == nil {
		return sql.NullString{}, sql.NullString{}, sql.NullTime{}
	}
	rr := r.RevisionRequest
	return sql.NullString{String: rr.Reason, Valid: true},
		sql.NullString{String: rr.RequestedBy, Valid: true},
		sql.NullTime{Time: rr.RequestedAt, Valid: true}
}

func (r *eventReportRepository) Create(ctx context.Context, rep *domain.EventReport) error {
	query := `
		INSERT INTO event_reports (event_id, summary, outcomes, challenges, recommendations, attendees, attachments,
			status, submitted_by, submitted_by_email, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	c := rep.Content
	err := r.DB.QueryRowContext(ctx, query,
		rep.EventID, c.Summary, c.Outcomes, c.Challenges, c.Recommendations, c.Attendees, pq.Array(c.Attachments),
		rep.Status, rep.SubmittedBy, rep.SubmittedByEmail, rep.SubmittedAt, rep.CreatedAt, rep.UpdatedAt,
	).Scan(&rep.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: a report already exists for this event", domain.ErrInvalidTransition)
	}
	return err
}

func (r *eventReportRepository) GetByID(ctx context.Context, id string) (*domain.EventReport, error) {
	query := `SELECT ` + reportColumns + ` FROM event_reports WHERE id = $1`
	return scanReport(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventReportRepository) GetByEventID(ctx context.Context, eventID string) (*domain.EventReport, error) {
	query := `SELECT ` + reportColumns + ` FROM event_reports WHERE event_id = $1`
	return scanReport(r.DB.QueryRowContext(ctx, query, eventID))
}

func (r *eventReportRepository) GetForUpdate(ctx context.Context, id string) (*domain.EventReport, error) {
	query := `SELECT ` + reportColumns + ` FROM event_reports WHERE id = $1 FOR UPDATE`
	return scanReport(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventReportRepository) Update(ctx context.Context, rep *domain.EventReport) error {
	query := `
		UPDATE event_reports
		SET summary = $2, outcomes = $3, challenges = $4, recommendations = $5, attendees = $6, attachments = $7,
			status = $8, rejection_reason = $9, revision_reason = $10, revision_requested_by = $11,
			revision_requested_at = $12, submitted_at = $13, reviewed_by = $14, reviewed_at = $15, updated_at = $16
		WHERE id = $1
	`
	c := rep.Content
	revReason, revBy, revAt := revisionColumns(rep)
	var reviewedAt sql.NullTime
	if rep.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *rep.ReviewedAt, Valid: true}
	}
	result, err := r.DB.ExecContext(ctx, query,
		rep.ID, c.Summary, c.Outcomes, c.Challenges, c.Recommendations, c.Attendees, pq.Array(c.Attachments),
		rep.Status, nullString(rep.RejectionReason), revReason, revBy, revAt,
		rep.SubmittedAt, nullString(rep.ReviewedBy), reviewedAt, rep.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// reportFilterClause matches the effective status: an open revision request
// shadows the stored status.
func reportFilterClause(f domain.ReportFilter) (string, []any) {
	switch f.Status {
	case "":
		return "", nil
	case domain.ReportAwaitingRevision:
		return " WHERE revision_reason IS NOT NULL", nil
	default:
		return " WHERE status = $1 AND revision_reason IS NULL", []any{f.Status}
	}
}

func (r *eventReportRepository) List(ctx context.Context, f domain.ReportFilter, p domain.PaginationParams) ([]*domain.EventReport, int, error) {
	where, args := reportFilterClause(f)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reportColumns + ` FROM event_reports` + where +
		fmt.Sprintf(` ORDER BY submitted_at ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, p.PageSize, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports := make([]*domain.EventReport, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}
