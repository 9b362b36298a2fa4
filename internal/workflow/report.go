package workflow

import (
	"fmt"
	"strings"
	"time"

	"eventflow/internal/domain"
)

// CheckSubmit allows one report per approved event once the event has ended.
func CheckSubmit(ev *domain.Event, existing *domain.EventReport, now time.Time) error {
	if ev == nil {
		return domain.ErrEventNotFound
	}
	if ev.Status != domain.EventApproved {
		return fmt.Errorf("%w: reports are accepted for approved events only, event is %s", domain.ErrInvalidTransition, ev.Status)
	}
	if !ev.HasEnded(now) {
		return fmt.Errorf("%w: event has not ended yet", domain.ErrInvalidTransition)
	}
	if existing != nil {
		return fmt.Errorf("%w: a report already exists for this event", domain.ErrInvalidTransition)
	}
	return nil
}

// ValidateContent checks the author-supplied report body.
func ValidateContent(c domain.ReportContent) error {
	var problems []string
	if strings.TrimSpace(c.Summary) == "" {
		problems = append(problems, "summary is required")
	}
	if c.Attendees < 0 {
		problems = append(problems, "attendees must not be negative")
	}
	for _, a := range c.Attachments {
		if strings.TrimSpace(a) == "" {
			problems = append(problems, "attachments must not contain empty entries")
			break
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func requireReviewer(caller domain.Identity, action string) error {
	if !caller.IsReviewer() {
		return fmt.Errorf("%w: %s requires MANAGER or ADMIN", domain.ErrForbidden, action)
	}
	return nil
}

func requireReason(reason, what string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", fmt.Errorf("%w: %s reason is required", domain.ErrValidation, what)
	}
	return reason, nil
}

// requireUndecided is the shared approve/reject guard: PENDING with no revision request.
func requireUndecided(r *domain.EventReport) error {
	if r.Status != domain.ReportPending {
		return fmt.Errorf("%w: report is %s", domain.ErrInvalidTransition, r.Status)
	}
	if r.AwaitingRevision() {
		return fmt.Errorf("%w: report is awaiting revision", domain.ErrInvalidTransition)
	}
	return nil
}

// ApproveReport moves a PENDING report to APPROVED and records the reviewer.
func ApproveReport(r *domain.EventReport, caller domain.Identity, now time.Time) error {
	if err := requireReviewer(caller, "approve"); err != nil {
		return err
	}
	if err := requireUndecided(r); err != nil {
		return err
	}
	reviewer := caller.UserID
	r.Status = domain.ReportApproved
	r.RejectionReason = nil
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &now
	r.UpdatedAt = now
	r.Refresh()
	return nil
}

// RejectReport moves a PENDING report to REJECTED with a mandatory reason.
func RejectReport(r *domain.EventReport, caller domain.Identity, reason string, now time.Time) error {
	if err := requireReviewer(caller, "reject"); err != nil {
		return err
	}
	if err := requireUndecided(r); err != nil {
		return err
	}
	reason, err := requireReason(reason, "rejection")
	if err != nil {
		return err
	}
	reviewer := caller.UserID
	r.Status = domain.ReportRejected
	r.RejectionReason = &reason
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &now
	r.UpdatedAt = now
	r.Refresh()
	return nil
}

// RequestRevision attaches a revision request to an APPROVED report. Status stays APPROVED.
func RequestRevision(r *domain.EventReport, caller domain.Identity, reason string, now time.Time) error {
	if err := requireReviewer(caller, "request revision"); err != nil {
		return err
	}
	if r.Status != domain.ReportApproved {
		return fmt.Errorf("%w: revisions can only be requested on approved reports, report is %s", domain.ErrInvalidTransition, r.Status)
	}
	if r.AwaitingRevision() {
		return fmt.Errorf("%w: a revision request is already pending", domain.ErrInvalidTransition)
	}
	reason, err := requireReason(reason, "revision")
	if err != nil {
		return err
	}
	r.RevisionRequest = &domain.RevisionRequest{
		Reason:      reason,
		RequestedBy: caller.UserID,
		RequestedAt: now,
	}
	r.UpdatedAt = now
	r.Refresh()
	return nil
}

// ResubmitReport lets the author replace the content of a REJECTED report or one
// awaiting revision. The report returns to PENDING with review fields cleared.
func ResubmitReport(r *domain.EventReport, caller domain.Identity, content domain.ReportContent, now time.Time) error {
	if caller.UserID == "" || caller.UserID != r.SubmittedBy {
		return fmt.Errorf("%w: only the author may resubmit a report", domain.ErrForbidden)
	}
	if r.Status != domain.ReportRejected && !r.AwaitingRevision() {
		return fmt.Errorf("%w: report is %s and no revision was requested", domain.ErrInvalidTransition, r.Status)
	}
	if err := ValidateContent(content); err != nil {
		return err
	}
	content.Attachments = append([]string(nil), content.Attachments...)
	r.Content = content
	r.Status = domain.ReportPending
	r.RevisionRequest = nil
	r.RejectionReason = nil
	r.ReviewedBy = nil
	r.ReviewedAt = nil
	r.SubmittedAt = now
	r.UpdatedAt = now
	r.Refresh()
	return nil
}
