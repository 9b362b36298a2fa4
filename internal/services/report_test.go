package services

import (
	"context"
	"testing"
	"time"

	"eventflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// endedEvent returns an approved event whose end time has passed.
func (f *fixture) endedEvent(t *testing.T) *domain.Event {
	t.Helper()
	ev := f.approvedEvent(t, 10)
	f.clock.Advance(30 * time.Hour)
	return ev
}

func TestSubmitReport_Guards(t *testing.T) {
	ctx := context.Background()
	content := domain.ReportContent{Summary: "Great turnout", Attendees: 42}

	t.Run("event not ended", func(t *testing.T) {
		f := newFixture(t)
		ev := f.approvedEvent(t, 10)
		_, err := f.coord.SubmitReport(ctx, organizer, ev.ID, content)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.coord.SubmitReport(ctx, organizer, "missing", content)
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("empty summary", func(t *testing.T) {
		f := newFixture(t)
		ev := f.endedEvent(t)
		_, err := f.coord.SubmitReport(ctx, organizer, ev.ID, domain.ReportContent{})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("one report per event", func(t *testing.T) {
		f := newFixture(t)
		ev := f.endedEvent(t)
		_, err := f.coord.SubmitReport(ctx, organizer, ev.ID, content)
		require.NoError(t, err)
		_, err = f.coord.SubmitReport(ctx, organizer, ev.ID, content)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestReportWorkflow_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.endedEvent(t)

	rep, err := f.coord.SubmitReport(ctx, organizer, ev.ID, domain.ReportContent{Summary: "draft", Attendees: 12})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, rep.Status)
	assert.Equal(t, organizer.UserID, rep.SubmittedBy)

	_, err = f.coord.RejectReport(ctx, manager, rep.ID, "")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.coord.RejectReport(ctx, organizer, rep.ID, "self review")
	require.ErrorIs(t, err, domain.ErrForbidden)

	rep, err = f.coord.RejectReport(ctx, manager, rep.ID, "needs attendee numbers")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportRejected, rep.Status)

	_, err = f.coord.ResubmitReport(ctx, manager, rep.ID, domain.ReportContent{Summary: "hijack"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	rep, err = f.coord.ResubmitReport(ctx, organizer, rep.ID, domain.ReportContent{Summary: "final", Attendees: 40})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, rep.Status)
	assert.Nil(t, rep.RejectionReason)
	assert.Equal(t, "final", rep.Content.Summary)

	rep, err = f.coord.ApproveReport(ctx, manager, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportApproved, rep.Status)

	rep, err = f.coord.RequestRevision(ctx, manager, rep.ID, "attach photos")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportApproved, rep.Status)
	assert.Equal(t, domain.ReportAwaitingRevision, rep.EffectiveStatus)

	_, err = f.coord.RequestRevision(ctx, manager, rep.ID, "again")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.coord.ApproveReport(ctx, manager, rep.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	rep, err = f.coord.ResubmitReport(ctx, organizer, rep.ID, domain.ReportContent{Summary: "final", Attendees: 40, Attachments: []string{"photos.zip"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, rep.Status)
	assert.Nil(t, rep.RevisionRequest)

	stored, err := f.coord.GetReportByEvent(ctx, manager, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, stored.ID)
	assert.Equal(t, []string{"photos.zip"}, stored.Content.Attachments)

	calls := f.notifier.Calls()
	assert.Contains(t, calls, "report_rejected:"+rep.ID+":Go Meetup")
	assert.Contains(t, calls, "revision_requested:"+rep.ID+":Go Meetup")
}

func TestReportTransition_FailedGuardLeavesReportUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.endedEvent(t)
	rep, err := f.coord.SubmitReport(ctx, organizer, ev.ID, domain.ReportContent{Summary: "s"})
	require.NoError(t, err)

	_, err = f.coord.RequestRevision(ctx, manager, rep.ID, "too early")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.coord.GetReport(ctx, organizer, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, got.Status)
	assert.Nil(t, got.RevisionRequest)
}

func TestGetReport_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.endedEvent(t)
	rep, err := f.coord.SubmitReport(ctx, organizer, ev.ID, domain.ReportContent{Summary: "s"})
	require.NoError(t, err)

	_, err = f.coord.GetReport(ctx, alice, rep.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.coord.GetReport(ctx, manager, rep.ID)
	require.NoError(t, err)
	_, err = f.coord.GetReport(ctx, manager, "missing")
	require.ErrorIs(t, err, domain.ErrReportNotFound)
	_, err = f.coord.ApproveReport(ctx, manager, "missing")
	require.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestListReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.endedEvent(t)
	rep, err := f.coord.SubmitReport(ctx, organizer, ev.ID, domain.ReportContent{Summary: "Went well", Attendees: 30})
	require.NoError(t, err)
	page := domain.PaginationParams{Page: 1, PageSize: 10}

	_, _, err = f.coord.ListReports(ctx, organizer, domain.ReportFilter{}, page)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, _, err = f.coord.ListReports(ctx, manager, domain.ReportFilter{Status: "LOST"}, page)
	require.ErrorIs(t, err, domain.ErrValidation)

	items, total, err := f.coord.ListReports(ctx, manager, domain.ReportFilter{Status: "pending"}, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, rep.ID, items[0].ID)

	_, err = f.coord.ApproveReport(ctx, manager, rep.ID)
	require.NoError(t, err)
	_, err = f.coord.RequestRevision(ctx, manager, rep.ID, "add photos")
	require.NoError(t, err)

	_, total, err = f.coord.ListReports(ctx, manager, domain.ReportFilter{Status: string(domain.ReportPending)}, page)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	items, total, err = f.coord.ListReports(ctx, manager, domain.ReportFilter{Status: domain.ReportAwaitingRevision}, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.ReportAwaitingRevision, items[0].EffectiveStatus)
}
