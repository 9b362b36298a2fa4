package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"eventflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventWorkflow struct {
	event      *domain.Event
	err        error
	lastCaller domain.Identity
	lastInput  domain.CreateEventInput
	lastID     string
	lastReason string
	lastUpdate domain.UpdateEventInput
	lastFilter domain.EventFilter
	lastPage   domain.PaginationParams
	items      []*domain.Event
	total      int
}

func (f *fakeEventWorkflow) result(caller domain.Identity, eventID string) (*domain.Event, error) {
	f.lastCaller, f.lastID = caller, eventID
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventWorkflow) CreateEvent(_ context.Context, caller domain.Identity, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastInput = in
	return f.result(caller, "")
}

func (f *fakeEventWorkflow) GetEvent(_ context.Context, caller domain.Identity, eventID string) (*domain.Event, error) {
	return f.result(caller, eventID)
}

func (f *fakeEventWorkflow) ApproveEvent(_ context.Context, caller domain.Identity, eventID string) (*domain.Event, error) {
	return f.result(caller, eventID)
}

func (f *fakeEventWorkflow) RejectEvent(_ context.Context, caller domain.Identity, eventID, reason string) (*domain.Event, error) {
	f.lastReason = reason
	return f.result(caller, eventID)
}

func (f *fakeEventWorkflow) CancelEvent(_ context.Context, caller domain.Identity, eventID string) (*domain.Event, error) {
	return f.result(caller, eventID)
}

func (f *fakeEventWorkflow) UpdateEvent(_ context.Context, caller domain.Identity, eventID string, in domain.UpdateEventInput) (*domain.Event, error) {
	f.lastUpdate = in
	return f.result(caller, eventID)
}

func (f *fakeEventWorkflow) ListEvents(_ context.Context, caller domain.Identity, filter domain.EventFilter, p domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastCaller, f.lastFilter, f.lastPage = caller, filter, p
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.items, f.total, nil
}

func TestEventController_CreateEvent(t *testing.T) {
	start := time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		caller     *domain.Identity
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"title":"Go Meetup","capacity":50,"start_time":"2030-05-01T18:00:00Z","end_time":"2030-05-01T21:00:00Z"}`,
			caller:     &organizer,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unauthenticated",
			body:       `{"title":"Go Meetup"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "missing title",
			body:       `{"capacity":5,"start_time":"2030-05-01T18:00:00Z","end_time":"2030-05-01T21:00:00Z"}`,
			caller:     &organizer,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationError",
		},
		{
			name:       "negative capacity",
			body:       `{"title":"x","capacity":-1,"start_time":"2030-05-01T18:00:00Z","end_time":"2030-05-01T21:00:00Z"}`,
			caller:     &organizer,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationError",
		},
		{
			name:       "service validation error",
			body:       `{"title":"x","start_time":"2030-05-01T18:00:00Z","end_time":"2030-05-01T17:00:00Z"}`,
			caller:     &organizer,
			svcErr:     errors.Join(domain.ErrValidation, errors.New("end_time must not be before start_time")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventWorkflow{
				event: &domain.Event{ID: eventUUID, Title: "Go Meetup", Status: domain.EventPending, Capacity: 50},
				err:   tt.svcErr,
			}
			ctrl := NewEventController(testLogger, svc)

			rec := serve(t, "POST /events", ctrl.CreateEvent, http.MethodPost, "/events", tt.body, tt.caller)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				apiErr := decode(t, rec, nil)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			var got domain.Event
			require.Nil(t, decode(t, rec, &got))
			assert.Equal(t, eventUUID, got.ID)
			assert.Equal(t, "Go Meetup", svc.lastInput.Title)
			assert.Equal(t, 50, svc.lastInput.Capacity)
			assert.True(t, start.Equal(svc.lastInput.StartTime))
			assert.Equal(t, organizer, svc.lastCaller)
		})
	}
}

func TestEventController_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		handler    func(*EventController) http.HandlerFunc
		method     string
		target     string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "get",
			pattern:    "GET /events/{eventID}",
			handler:    func(c *EventController) http.HandlerFunc { return c.GetEvent },
			method:     http.MethodGet,
			target:     "/events/" + eventUUID,
			wantStatus: http.StatusOK,
		},
		{
			name:       "get malformed id is not found",
			pattern:    "GET /events/{eventID}",
			handler:    func(c *EventController) http.HandlerFunc { return c.GetEvent },
			method:     http.MethodGet,
			target:     "/events/not-a-uuid",
			wantStatus: http.StatusNotFound,
			wantCode:   "EventNotFound",
		},
		{
			name:       "approve forbidden",
			pattern:    "POST /events/{eventID}/approve",
			handler:    func(c *EventController) http.HandlerFunc { return c.ApproveEvent },
			method:     http.MethodPost,
			target:     "/events/" + eventUUID + "/approve",
			svcErr:     domain.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "Forbidden",
		},
		{
			name:       "reject passes reason",
			pattern:    "POST /events/{eventID}/reject",
			handler:    func(c *EventController) http.HandlerFunc { return c.RejectEvent },
			method:     http.MethodPost,
			target:     "/events/" + eventUUID + "/reject",
			body:       `{"reason":"venue unavailable"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "cancel invalid transition",
			pattern:    "POST /events/{eventID}/cancel",
			handler:    func(c *EventController) http.HandlerFunc { return c.CancelEvent },
			method:     http.MethodPost,
			target:     "/events/" + eventUUID + "/cancel",
			svcErr:     domain.ErrInvalidTransition,
			wantStatus: http.StatusConflict,
			wantCode:   "InvalidTransition",
		},
		{
			name:       "approve busy",
			pattern:    "POST /events/{eventID}/approve",
			handler:    func(c *EventController) http.HandlerFunc { return c.ApproveEvent },
			method:     http.MethodPost,
			target:     "/events/" + eventUUID + "/approve",
			svcErr:     domain.ErrBusy,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "Busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventWorkflow{event: &domain.Event{ID: eventUUID}, err: tt.svcErr}
			ctrl := NewEventController(testLogger, svc)

			rec := serve(t, tt.pattern, tt.handler(ctrl), tt.method, tt.target, tt.body, &reviewer)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				apiErr := decode(t, rec, nil)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, eventUUID, svc.lastID)
			if tt.body != "" {
				assert.Equal(t, "venue unavailable", svc.lastReason)
			}
		})
	}
}

func TestEventController_ListEvents(t *testing.T) {
	svc := &fakeEventWorkflow{items: []*domain.Event{{ID: eventUUID, Status: domain.EventPending}}, total: 1}
	ctrl := NewEventController(testLogger, svc)

	rec := serve(t, "GET /events", ctrl.ListEvents, http.MethodGet, "/events?status=pending&organizer=me&page_size=5", "", &organizer)

	require.Equal(t, http.StatusOK, rec.Code)
	var got ListEventsResponse
	require.Nil(t, decode(t, rec, &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Pagination.Total)
	assert.Equal(t, domain.EventFilter{Status: domain.EventPending, OrganizerID: organizer.UserID}, svc.lastFilter)
	assert.Equal(t, domain.PaginationParams{Page: 1, PageSize: 5}, svc.lastPage)

	t.Run("unknown status", func(t *testing.T) {
		rec := serve(t, "GET /events", ctrl.ListEvents, http.MethodGet, "/events?status=DRAFT", "", &organizer)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decode(t, rec, nil)
		require.NotNil(t, apiErr)
		assert.Equal(t, "ValidationError", apiErr.Code)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		svc := &fakeEventWorkflow{}
		rec := serve(t, "GET /events", NewEventController(testLogger, svc).ListEvents, http.MethodGet, "/events", "", &reviewer)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"items":[]`)
		assert.Equal(t, domain.EventFilter{}, svc.lastFilter)
	})

	t.Run("forbidden filter", func(t *testing.T) {
		svc := &fakeEventWorkflow{err: domain.ErrForbidden}
		rec := serve(t, "GET /events", NewEventController(testLogger, svc).ListEvents, http.MethodGet, "/events?status=REJECTED", "", &organizer)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestEventController_UpdateEvent(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "capacity only", target: "/events/" + eventUUID, body: `{"capacity":80}`, wantStatus: http.StatusOK},
		{name: "malformed id", target: "/events/abc", body: `{"capacity":80}`, wantStatus: http.StatusNotFound, wantCode: "EventNotFound"},
		{name: "malformed body", target: "/events/" + eventUUID, body: `{"capacity":"many"}`, wantStatus: http.StatusBadRequest},
		{
			name: "capacity below registrations", target: "/events/" + eventUUID, body: `{"capacity":1}`,
			svcErr: domain.ErrValidation, wantStatus: http.StatusBadRequest, wantCode: "ValidationError",
		},
		{
			name: "cancelled event", target: "/events/" + eventUUID, body: `{"title":"x"}`,
			svcErr: domain.ErrInvalidTransition, wantStatus: http.StatusConflict, wantCode: "InvalidTransition",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventWorkflow{event: &domain.Event{ID: eventUUID, Capacity: 80}, err: tt.svcErr}
			rec := serve(t, "PATCH /events/{eventID}", NewEventController(testLogger, svc).UpdateEvent, http.MethodPatch, tt.target, tt.body, &organizer)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				apiErr := decode(t, rec, nil)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
			}
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, svc.lastUpdate.Capacity)
				assert.Equal(t, 80, *svc.lastUpdate.Capacity)
				assert.Nil(t, svc.lastUpdate.Title)
			}
		})
	}
}
