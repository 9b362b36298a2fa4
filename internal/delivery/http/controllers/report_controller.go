package controllers

import (
	"log/slog"
	"net/http"

	"eventflow/internal/delivery/http/helpers"
	"eventflow/internal/domain"
)

// ReportSuccessResponse is the success response envelope for endpoints returning one report.
type ReportSuccessResponse struct {
	Data  *domain.EventReport `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ListReportsResponse is the data payload for GET /reports.
type ListReportsResponse struct {
	Items      []*domain.EventReport  `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListReportsSuccessResponse is the success response envelope for GET /reports (200).
type ListReportsSuccessResponse struct {
	Data  ListReportsResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type ReportController struct {
	Logger  *slog.Logger
	Service domain.ReportWorkflow
}

func NewReportController(logger *slog.Logger, svc domain.ReportWorkflow) *ReportController {
	return &ReportController{
		Logger:  logger,
		Service: svc,
	}
}

// SubmitReport godoc
// @Summary Submit the post-event report
// @Description Submits the single report for an APPROVED event that has ended. The report starts PENDING review.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body domain.ReportContent true "Report content"
// @Success 201 {object} controllers.ReportSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /events/{eventID}/report [post]
func (c *ReportController) SubmitReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	var content domain.ReportContent
	if !helpers.DecodeAndValidate(w, r, &content) {
		return
	}
	rep, err := c.Service.SubmitReport(r.Context(), caller, eventID, content)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, rep)
}

// GetReportByEvent godoc
// @Summary Get the report for an event
// @Description Visible to the report author, the event organizer and reviewers.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ReportSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound or ReportNotFound"
// @Router /events/{eventID}/report [get]
func (c *ReportController) GetReportByEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	rep, err := c.Service.GetReportByEvent(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rep)
}

// GetReport godoc
// @Summary Get a report by ID
// @Description Visible to the report author, the event organizer and reviewers. effective_status is AWAITING_REVISION while a revision request is open.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID (UUID)"
// @Success 200 {object} controllers.ReportSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: ReportNotFound"
// @Router /reports/{reportID} [get]
func (c *ReportController) GetReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r, "reportID", domain.ErrReportNotFound)
	if !ok {
		return
	}
	rep, err := c.Service.GetReport(r.Context(), caller, reportID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rep)
}

// ListReports godoc
// @Summary List reports for review
// @Description Reviewer-only. Filters on effective status and orders by submission time, oldest first.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, APPROVED, REJECTED or AWAITING_REVISION"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListReportsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Router /reports [get]
func (c *ReportController) ListReports(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	p := helpers.ParsePagination(r)
	items, total, err := c.Service.ListReports(r.Context(), caller, domain.ReportFilter{Status: r.URL.Query().Get("status")}, p)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.EventReport{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListReportsResponse{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(p, total),
	})
}

// ApproveReport godoc
// @Summary Approve a pending report
// @Description Reviewer-only. Moves a PENDING report to APPROVED.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID (UUID)"
// @Success 200 {object} controllers.ReportSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: ReportNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /reports/{reportID}/approve [post]
func (c *ReportController) ApproveReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r, "reportID", domain.ErrReportNotFound)
	if !ok {
		return
	}
	rep, err := c.Service.ApproveReport(r.Context(), caller, reportID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rep)
}

// RejectReport godoc
// @Summary Reject a pending report
// @Description Reviewer-only. Moves a PENDING report to REJECTED with a reason and notifies the author.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID (UUID)"
// @Param body body controllers.ReasonRequest true "Rejection reason"
// @Success 200 {object} controllers.ReportSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: ReportNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /reports/{reportID}/reject [post]
func (c *ReportController) RejectReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r, "reportID", domain.ErrReportNotFound)
	if !ok {
		return
	}
	var req ReasonRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	rep, err := c.Service.RejectReport(r.Context(), caller, reportID, req.Reason)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rep)
}

// RequestRevision godoc
// @Summary Request a revision of an approved report
// @Description Reviewer-only. Attaches a revision request to an APPROVED report; the report stays APPROVED with effective_status AWAITING_REVISION until resubmitted.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID (UUID)"
// @Param body body controllers.ReasonRequest true "What needs to change"
// @Success 200 {object} controllers.ReportSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: ReportNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /reports/{reportID}/revision-requests [post]
func (c *ReportController) RequestRevision(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r, "reportID", domain.ErrReportNotFound)
	if !ok {
		return
	}
	var req ReasonRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	rep, err := c.Service.RequestRevision(r.Context(), caller, reportID, req.Reason)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rep)
}

// ResubmitReport godoc
// @Summary Resubmit a report with new content
// @Description Author-only. Allowed when the report is REJECTED or has an open revision request; the report returns to PENDING.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID (UUID)"
// @Param body body domain.ReportContent true "Updated report content"
// @Success 200 {object} controllers.ReportSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: ReportNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /reports/{reportID} [put]
func (c *ReportController) ResubmitReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r, "reportID", domain.ErrReportNotFound)
	if !ok {
		return
	}
	var content domain.ReportContent
	if !helpers.DecodeAndValidate(w, r, &content) {
		return
	}
	rep, err := c.Service.ResubmitReport(r.Context(), caller, reportID, content)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rep)
}
