package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventflow/internal/domain"
)

type emailNotifier struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailNotifier returns a Notifier that renders the named templates and sends them with mailer.
func NewEmailNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.Notifier {
	return &emailNotifier{mailer: mailer, renderer: renderer}
}

func (s *emailNotifier) send(template, to string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	slog.Info("Email sent", "template", template, "to", to)
	return nil
}

// EventReviewed tells the organizer that their event was approved or rejected.
func (s *emailNotifier) EventReviewed(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.OrganizerEmail == "" {
		slog.Debug("Skipping event review email, organizer has no email", "event_id", event.ID)
		return nil
	}
	data := &domain.EventReviewedEmailData{
		Email:      event.OrganizerEmail,
		EventTitle: event.Title,
		Status:     event.Status,
	}
	if event.RejectionReason != nil {
		data.RejectionReason = *event.RejectionReason
	}
	return s.send("event_reviewed", data.Email, data)
}

// ReportRejected tells the report author why the report was rejected.
func (s *emailNotifier) ReportRejected(ctx context.Context, report *domain.EventReport, event *domain.Event) error {
	data, ok := reportEmailData(report, event)
	if !ok {
		return nil
	}
	if report.RejectionReason != nil {
		data.Reason = *report.RejectionReason
	}
	return s.send("report_rejected", data.Email, data)
}

// RevisionRequested tells the report author what needs to change.
func (s *emailNotifier) RevisionRequested(ctx context.Context, report *domain.EventReport, event *domain.Event) error {
	data, ok := reportEmailData(report, event)
	if !ok {
		return nil
	}
	if report.RevisionRequest != nil {
		data.Reason = report.RevisionRequest.Reason
	}
	return s.send("report_revision_requested", data.Email, data)
}

func reportEmailData(report *domain.EventReport, event *domain.Event) (*domain.ReportReviewEmailData, bool) {
	if report == nil || report.SubmittedByEmail == "" {
		return nil, false
	}
	data := &domain.ReportReviewEmailData{
		Email:    report.SubmittedByEmail,
		ReportID: report.ID,
	}
	if event != nil {
		data.EventTitle = event.Title
	}
	return data, true
}
