package domain

import (
	"context"
	"strings"
	"time"
)

// ReportStatus is the review decision recorded on an event report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportApproved ReportStatus = "APPROVED"
	ReportRejected ReportStatus = "REJECTED"
)

// ReportAwaitingRevision is the effective status shown while a revision request is attached.
// It is never stored in EventReport.Status.
const ReportAwaitingRevision = "AWAITING_REVISION"

// RevisionRequest is a reviewer's demand for changes. It co-exists with the last decided status.
type RevisionRequest struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReportContent is the author-supplied body of a report.
type ReportContent struct {
	Summary         string   `json:"summary"`
	Outcomes        string   `json:"outcomes,omitempty"`
	Challenges      string   `json:"challenges,omitempty"`
	Recommendations string   `json:"recommendations,omitempty"`
	Attendees       int      `json:"attendees"`
	Attachments     []string `json:"attachments,omitempty"`
}

// EventReport is the post-event report submitted by an organizer.
// swagger:model EventReport
type EventReport struct {
	ID               string           `json:"id"`
	EventID          string           `json:"event_id"`
	Content          ReportContent    `json:"content"`
	Status           ReportStatus     `json:"status"`
	EffectiveStatus  string           `json:"effective_status"`
	RevisionRequest  *RevisionRequest `json:"revision_request,omitempty"`
	RejectionReason  *string          `json:"rejection_reason,omitempty"`
	SubmittedBy      string           `json:"submitted_by"`
	SubmittedByEmail string           `json:"-"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	ReviewedBy       *string          `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewEventReport returns a PENDING report. ID is typically set by the repository on create.
func NewEventReport(eventID, submittedBy, submittedByEmail string, content ReportContent, now time.Time) *EventReport {
	r := &EventReport{
		EventID:          eventID,
		Content:          content,
		Status:           ReportPending,
		SubmittedBy:      submittedBy,
		SubmittedByEmail: submittedByEmail,
		SubmittedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.Refresh()
	return r
}

// AwaitingRevision reports whether a revision request is attached.
func (r *EventReport) AwaitingRevision() bool {
	return r.RevisionRequest != nil
}

// Refresh recomputes EffectiveStatus from Status and the revision flag.
func (r *EventReport) Refresh() {
	if r.AwaitingRevision() {
		r.EffectiveStatus = ReportAwaitingRevision
		return
	}
	r.EffectiveStatus = string(r.Status)
}

// ParseReportStatusFilter accepts PENDING, APPROVED, REJECTED or AWAITING_REVISION in any case.
// The empty string matches every report.
func ParseReportStatusFilter(s string) (string, bool) {
	st := strings.ToUpper(strings.TrimSpace(s))
	switch st {
	case "", string(ReportPending), string(ReportApproved), string(ReportRejected), ReportAwaitingRevision:
		return st, true
	}
	return "", false
}

// ReportFilter narrows a report listing. Status matches the effective status.
type ReportFilter struct {
	Status string
}

// Matches reports whether r passes the filter.
func (f ReportFilter) Matches(r *EventReport) bool {
	if f.Status == "" {
		return true
	}
	if r.AwaitingRevision() {
		return f.Status == ReportAwaitingRevision
	}
	return f.Status == string(r.Status)
}

// EventReportRepository defines storage operations for event reports.
type EventReportRepository interface {
	Create(ctx context.Context, report *EventReport) error
	GetByID(ctx context.Context, id string) (*EventReport, error)
	GetByEventID(ctx context.Context, eventID string) (*EventReport, error)
	// GetForUpdate reads the report and holds its row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*EventReport, error)
	// Update persists status, review, revision and content fields of the report.
	Update(ctx context.Context, report *EventReport) error
	// List returns one page of reports ordered by submission time, plus the total matching count.
	List(ctx context.Context, filter ReportFilter, p PaginationParams) ([]*EventReport, int, error)
}

// ReportWorkflow is the coordinator surface for the report approval workflow.
type ReportWorkflow interface {
	SubmitReport(ctx context.Context, caller Identity, eventID string, content ReportContent) (*EventReport, error)
	GetReport(ctx context.Context, caller Identity, reportID string) (*EventReport, error)
	GetReportByEvent(ctx context.Context, caller Identity, eventID string) (*EventReport, error)
	ListReports(ctx context.Context, caller Identity, filter ReportFilter, p PaginationParams) ([]*EventReport, int, error)
	ApproveReport(ctx context.Context, caller Identity, reportID string) (*EventReport, error)
	RejectReport(ctx context.Context, caller Identity, reportID, reason string) (*EventReport, error)
	RequestRevision(ctx context.Context, caller Identity, reportID, reason string) (*EventReport, error)
	ResubmitReport(ctx context.Context, caller Identity, reportID string, content ReportContent) (*EventReport, error)
}
