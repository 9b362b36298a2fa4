package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventflow/internal/domain"
	"eventflow/internal/lock"
	"eventflow/internal/workflow"
)

// SubmitReport files the single post-event report for an approved event that has ended.
func (c *Coordinator) SubmitReport(ctx context.Context, caller domain.Identity, eventID string, content domain.ReportContent) (*domain.EventReport, error) {
	var rep *domain.EventReport
	err := c.mutate(ctx, "report.submit", []string{lock.EventKey(eventID)}, func(tx domain.Repositories) error {
		ev, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "get event")
		}
		existing, err := tx.Reports().GetByEventID(ctx, eventID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get report by event: %w", err)
		}
		now := c.now()
		if err := workflow.CheckSubmit(ev, existing, now); err != nil {
			return err
		}
		if err := workflow.ValidateContent(content); err != nil {
			return err
		}
		rep = domain.NewEventReport(eventID, caller.UserID, caller.Email, content, now)
		if err := tx.Reports().Create(ctx, rep); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		return c.audit(ctx, tx, "report.submit", "report", rep.ID, caller, map[string]any{"event_id": eventID})
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Report submitted", "report_id", rep.ID, "event_id", eventID, "actor_id", caller.UserID)
	return rep, nil
}

// canReadReport allows the author, the event organizer and reviewers.
func (c *Coordinator) canReadReport(ctx context.Context, caller domain.Identity, rep *domain.EventReport) error {
	if caller.IsReviewer() || rep.SubmittedBy == caller.UserID {
		return nil
	}
	ev, err := c.store.Events().GetByID(ctx, rep.EventID)
	if err != nil {
		return eventNotFound(err, "get event")
	}
	if ev.IsOrganizer(caller.UserID) {
		return nil
	}
	return fmt.Errorf("%w: only the author, the organizer or a reviewer may read this report", domain.ErrForbidden)
}

func (c *Coordinator) GetReport(ctx context.Context, caller domain.Identity, reportID string) (*domain.EventReport, error) {
	rep, err := c.store.Reports().GetByID(ctx, reportID)
	if err != nil {
		return nil, normalize(reportNotFound(err, "get report"))
	}
	if err := c.canReadReport(ctx, caller, rep); err != nil {
		return nil, normalize(err)
	}
	return rep, nil
}

func (c *Coordinator) GetReportByEvent(ctx context.Context, caller domain.Identity, eventID string) (*domain.EventReport, error) {
	if _, err := c.store.Events().GetByID(ctx, eventID); err != nil {
		return nil, normalize(eventNotFound(err, "get event"))
	}
	rep, err := c.store.Reports().GetByEventID(ctx, eventID)
	if err != nil {
		return nil, normalize(reportNotFound(err, "get report by event"))
	}
	if err := c.canReadReport(ctx, caller, rep); err != nil {
		return nil, normalize(err)
	}
	return rep, nil
}

// ListReports is the reviewers' queue, filtered on effective status and ordered by submission time.
func (c *Coordinator) ListReports(ctx context.Context, caller domain.Identity, filter domain.ReportFilter, p domain.PaginationParams) ([]*domain.EventReport, int, error) {
	if !caller.IsReviewer() {
		return nil, 0, fmt.Errorf("%w: listing reports requires MANAGER or ADMIN", domain.ErrForbidden)
	}
	status, ok := domain.ParseReportStatusFilter(filter.Status)
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown report status %q", domain.ErrValidation, filter.Status)
	}
	filter.Status = status
	reports, total, err := c.store.Reports().List(ctx, filter, p)
	if err != nil {
		return nil, 0, normalize(fmt.Errorf("list reports: %w", err))
	}
	return reports, total, nil
}

func (c *Coordinator) ApproveReport(ctx context.Context, caller domain.Identity, reportID string) (*domain.EventReport, error) {
	return c.transitionReport(ctx, caller, reportID, "report.approve", func(r *domain.EventReport, now time.Time) error {
		return workflow.ApproveReport(r, caller, now)
	})
}

func (c *Coordinator) RejectReport(ctx context.Context, caller domain.Identity, reportID, reason string) (*domain.EventReport, error) {
	rep, err := c.transitionReport(ctx, caller, reportID, "report.reject", func(r *domain.EventReport, now time.Time) error {
		return workflow.RejectReport(r, caller, reason, now)
	})
	if err != nil {
		return nil, err
	}
	c.notifyAuthor(ctx, "report.reject", rep, domain.Notifier.ReportRejected)
	return rep, nil
}

func (c *Coordinator) RequestRevision(ctx context.Context, caller domain.Identity, reportID, reason string) (*domain.EventReport, error) {
	rep, err := c.transitionReport(ctx, caller, reportID, "report.request_revision", func(r *domain.EventReport, now time.Time) error {
		return workflow.RequestRevision(r, caller, reason, now)
	})
	if err != nil {
		return nil, err
	}
	c.notifyAuthor(ctx, "report.request_revision", rep, domain.Notifier.RevisionRequested)
	return rep, nil
}

func (c *Coordinator) ResubmitReport(ctx context.Context, caller domain.Identity, reportID string, content domain.ReportContent) (*domain.EventReport, error) {
	return c.transitionReport(ctx, caller, reportID, "report.resubmit", func(r *domain.EventReport, now time.Time) error {
		return workflow.ResubmitReport(r, caller, content, now)
	})
}

// transitionReport is the read-modify-write shared by every report transition.
func (c *Coordinator) transitionReport(ctx context.Context, caller domain.Identity, reportID, op string, apply func(r *domain.EventReport, now time.Time) error) (*domain.EventReport, error) {
	var rep *domain.EventReport
	err := c.mutate(ctx, op, []string{lock.ReportKey(reportID)}, func(tx domain.Repositories) error {
		r, err := tx.Reports().GetForUpdate(ctx, reportID)
		if err != nil {
			return reportNotFound(err, "get report")
		}
		from := r.EffectiveStatus
		if err := apply(r, c.now()); err != nil {
			return err
		}
		if err := tx.Reports().Update(ctx, r); err != nil {
			return reportNotFound(err, "update report")
		}
		payload := map[string]any{"from": from, "to": r.EffectiveStatus}
		switch {
		case r.RevisionRequest != nil:
			payload["reason"] = r.RevisionRequest.Reason
		case r.RejectionReason != nil:
			payload["reason"] = *r.RejectionReason
		}
		if err := c.audit(ctx, tx, op, "report", reportID, caller, payload); err != nil {
			return err
		}
		rep = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Report transitioned", "op", op, "report_id", reportID, "status", rep.Status, "effective_status", rep.EffectiveStatus, "actor_id", caller.UserID)
	return rep, nil
}

func (c *Coordinator) notifyAuthor(ctx context.Context, op string, rep *domain.EventReport, send func(n domain.Notifier, ctx context.Context, rep *domain.EventReport, ev *domain.Event) error) {
	c.notify(ctx, op, func(ctx context.Context, n domain.Notifier) error {
		ev, err := c.store.Events().GetByID(ctx, rep.EventID)
		if err != nil {
			return fmt.Errorf("load event for notification: %w", err)
		}
		return send(n, ctx, rep, ev)
	})
}
