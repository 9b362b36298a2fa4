package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventflow/internal/delivery/http/helpers"
	"eventflow/internal/domain"
)

// RegistrationSuccessResponse is the success response envelope for register, cancel and "me" endpoints.
type RegistrationSuccessResponse struct {
	Data  *domain.RegistrationResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// ListRegistrationsResponse is the data payload for GET /events/{eventID}/registrations.
type ListRegistrationsResponse struct {
	Items      []*domain.EventRegistration `json:"items"`
	Pagination helpers.PaginationMeta      `json:"pagination"`
}

// ListRegistrationsSuccessResponse is the success response envelope for GET /events/{eventID}/registrations (200).
type ListRegistrationsSuccessResponse struct {
	Data  ListRegistrationsResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// CheckInSuccessResponse is the success response envelope for the check-in endpoint.
type CheckInSuccessResponse struct {
	Data  *domain.EventRegistration `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationWorkflow
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationWorkflow) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register the caller for an event
// @Description Registers the authenticated user for an APPROVED event that has not started, reserving one seat. Fails with CapacityExceeded when the event is full.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegistrationSuccessResponse "data contains the registration and the event's new count"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: EventNotApproved, EventAlreadyStarted, AlreadyRegistered or CapacityExceeded"
// @Failure 503 {object} helpers.APIResponse "error.code: Busy or Timeout"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	res, err := c.Service.Register(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}

// CancelRegistration godoc
// @Summary Cancel the caller's registration
// @Description Cancels the caller's ACTIVE registration and releases the seat. Allowed whatever the event's status or start time.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: NotRegistered"
// @Failure 503 {object} helpers.APIResponse "error.code: Busy or Timeout"
// @Router /events/{eventID}/registrations [delete]
func (c *RegistrationController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	res, err := c.Service.CancelRegistration(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// GetMyRegistration godoc
// @Summary Get the caller's registration for an event
// @Description Returns status ACTIVE with the registration, or status NONE when the caller is not registered.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Router /events/{eventID}/registrations/me [get]
func (c *RegistrationController) GetMyRegistration(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	res, err := c.Service.GetMyRegistration(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// ListRegistrations godoc
// @Summary List an event's registrations
// @Description Organizer or reviewer. Paginated with page and page_size query parameters.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListRegistrationsSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	p := helpers.ParsePagination(r)
	items, total, err := c.Service.ListEventRegistrations(r.Context(), caller, eventID, p)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.EventRegistration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListRegistrationsResponse{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(p, total),
	})
}

// CheckIn godoc
// @Summary Check an attendee in
// @Description Organizer or reviewer. Marks the user's ACTIVE registration as attended.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "Attendee user ID"
// @Success 200 {object} controllers.CheckInSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: NotRegistered or InvalidTransition"
// @Router /events/{eventID}/registrations/{userID}/check-in [post]
func (c *RegistrationController) CheckIn(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	userID := strings.TrimSpace(r.PathValue("userID"))
	if userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing userID")
		return
	}
	reg, err := c.Service.CheckIn(r.Context(), caller, eventID, userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}
