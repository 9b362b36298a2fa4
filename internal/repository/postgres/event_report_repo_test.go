package postgres

import (
	"context"
	"testing"
	"time"

	"eventflow/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var reportRowColumns = []string{
	"id", "event_id", "summary", "outcomes", "challenges", "recommendations", "attendees", "attachments",
	"status", "rejection_reason", "revision_reason", "revision_requested_by", "revision_requested_at",
	"submitted_by", "submitted_by_email", "submitted_at", "reviewed_by", "reviewed_at", "created_at", "updated_at",
}

func TestEventReportRepository_Create(t *testing.T) {
	ts := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO event_reports`).
			WithArgs("ev-1", "went well", "", "", "", 40, sqlmock.AnyArg(), domain.ReportPending, "org-1", "org@example.com", ts, ts, ts).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rep-1"))

		rep := domain.NewEventReport("ev-1", "org-1", "org@example.com", domain.ReportContent{Summary: "went well", Attendees: 40}, ts)
		require.NoError(t, NewEventReportRepository(db).Create(context.Background(), rep))
		require.Equal(t, "rep-1", rep.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second report for event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO event_reports`).WillReturnError(&pq.Error{Code: "23505"})

		rep := domain.NewEventReport("ev-1", "org-1", "", domain.ReportContent{Summary: "again"}, ts)
		err = NewEventReportRepository(db).Create(context.Background(), rep)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestEventReportRepository_GetByIDWithRevision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, event_id, summary`).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows(reportRowColumns).AddRow(
			"rep-1", "ev-1", "went well", "", "", "", 40, "{photos.zip}",
			"APPROVED", nil, "add photos", "mgr-1", ts,
			"org-1", "org@example.com", ts, "mgr-1", ts, ts, ts,
		))

	rep, err := NewEventReportRepository(db).GetByID(context.Background(), "rep-1")
	require.NoError(t, err)
	require.Equal(t, domain.ReportApproved, rep.Status)
	require.Equal(t, domain.ReportAwaitingRevision, rep.EffectiveStatus)
	require.NotNil(t, rep.RevisionRequest)
	require.Equal(t, "add photos", rep.RevisionRequest.Reason)
	require.Equal(t, []string{"photos.zip"}, rep.Content.Attachments)
	require.Equal(t, "mgr-1", *rep.ReviewedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventReportRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	rep := domain.NewEventReport("ev-1", "org-1", "", domain.ReportContent{Summary: "s"}, ts)
	rep.ID = "rep-1"
	reason := "numbers missing"
	rep.Status = domain.ReportRejected
	rep.RejectionReason = &reason

	mock.ExpectExec(`UPDATE event_reports`).
		WithArgs("rep-1", "s", "", "", "", 0, sqlmock.AnyArg(), domain.ReportRejected, reason, nil, nil, nil, ts, nil, nil, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE event_reports`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewEventReportRepository(db)
	require.NoError(t, repo.Update(context.Background(), rep))
	require.ErrorIs(t, repo.Update(context.Background(), rep), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventReportRepository_List(t *testing.T) {
	ts := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(reportRowColumns).AddRow(
			"rep-1", "ev-1", "went well", "", "", "", 40, "{}",
			"PENDING", nil, nil, nil, nil,
			"org-1", "org@example.com", ts, nil, nil, ts, ts,
		)
	}

	tests := []struct {
		name   string
		filter domain.ReportFilter
		mock   func(mock sqlmock.Sqlmock)
	}{
		{
			name: "all reports",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM event_reports$`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(`FROM event_reports ORDER BY submitted_at ASC, id ASC LIMIT \$1 OFFSET \$2`).
					WithArgs(10, 10).
					WillReturnRows(row())
			},
		},
		{
			name:   "stored status excludes open revision requests",
			filter: domain.ReportFilter{Status: string(domain.ReportPending)},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM event_reports WHERE status = \$1 AND revision_reason IS NULL`).
					WithArgs("PENDING").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(`WHERE status = \$1 AND revision_reason IS NULL ORDER BY submitted_at ASC, id ASC LIMIT \$2 OFFSET \$3`).
					WithArgs("PENDING", 10, 10).
					WillReturnRows(row())
			},
		},
		{
			name:   "awaiting revision",
			filter: domain.ReportFilter{Status: domain.ReportAwaitingRevision},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM event_reports WHERE revision_reason IS NOT NULL`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(`WHERE revision_reason IS NOT NULL ORDER BY submitted_at ASC, id ASC LIMIT \$1 OFFSET \$2`).
					WithArgs(10, 10).
					WillReturnRows(row())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			items, total, err := NewEventReportRepository(db).List(context.Background(), tt.filter, domain.PaginationParams{Page: 2, PageSize: 10})
			require.NoError(t, err)
			require.Equal(t, 1, total)
			require.Len(t, items, 1)
			require.Equal(t, "rep-1", items[0].ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
