package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eventflow/internal/delivery/http/helpers"
	"eventflow/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are left unchanged.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	Capacity    *int       `json:"capacity"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

// ListEventsResponse is the data payload for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventWorkflow
}

func NewEventController(logger *slog.Logger, svc domain.EventWorkflow) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an event in PENDING status owned by the caller. The registration counter starts at 0; capacity 0 means unlimited.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or ValidationError"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), caller, domain.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Capacity:    req.Capacity,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with its current registration count. The organizer email is only shown to the organizer and reviewers.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events
// @Description Reviewers see every event. Other callers see APPROVED events, or all of their own with organizer=me.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, APPROVED, REJECTED or CANCELLED"
// @Param organizer query string false "Organizer user ID, or me"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var filter domain.EventFilter
	if raw := q.Get("status"); raw != "" {
		status, ok := domain.ParseEventStatus(raw)
		if !ok {
			helpers.WriteDomainError(w, r, c.Logger, fmt.Errorf("%w: unknown event status %q", domain.ErrValidation, raw))
			return
		}
		filter.Status = status
	}
	filter.OrganizerID = q.Get("organizer")
	if filter.OrganizerID == "me" {
		filter.OrganizerID = caller.UserID
	}

	p := helpers.ParsePagination(r)
	items, total, err := c.Service.ListEvents(r.Context(), caller, filter, p)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(p, total),
	})
}

// UpdateEvent godoc
// @Summary Edit an event
// @Description Organizer or reviewer. Edits a PENDING or APPROVED event without changing its status. Capacity cannot drop below the current registration count.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Failure 503 {object} helpers.APIResponse "error.code: Busy or Timeout"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), caller, eventID, domain.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Capacity:    req.Capacity,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ApproveEvent godoc
// @Summary Approve a pending event
// @Description Reviewer-only. Moves a PENDING event to APPROVED, opening registration.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Failure 503 {object} helpers.APIResponse "error.code: Busy or Timeout"
// @Router /events/{eventID}/approve [post]
func (c *EventController) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	event, err := c.Service.ApproveEvent(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// RejectEvent godoc
// @Summary Reject a pending event
// @Description Reviewer-only. Moves a PENDING event to REJECTED and stores the reason.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.ReasonRequest true "Rejection reason"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError"
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /events/{eventID}/reject [post]
func (c *EventController) RejectEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	var req ReasonRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.RejectEvent(r.Context(), caller, eventID, req.Reason)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CancelEvent godoc
// @Summary Cancel an event
// @Description Organizer or reviewer. Cancels an APPROVED event; registration closes.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: Forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: InvalidTransition"
// @Router /events/{eventID}/cancel [post]
func (c *EventController) CancelEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventID", domain.ErrEventNotFound)
	if !ok {
		return
	}
	event, err := c.Service.CancelEvent(r.Context(), caller, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
