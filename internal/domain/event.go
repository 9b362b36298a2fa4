package domain

import (
	"context"
	"strings"
	"time"
)

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventPending   EventStatus = "PENDING"
	EventApproved  EventStatus = "APPROVED"
	EventRejected  EventStatus = "REJECTED"
	EventCancelled EventStatus = "CANCELLED"
)

// ParseEventStatus accepts a status name in any case.
func ParseEventStatus(s string) (EventStatus, bool) {
	switch st := EventStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case EventPending, EventApproved, EventRejected, EventCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further lifecycle transition is possible.
func (s EventStatus) Terminal() bool {
	return s == EventRejected || s == EventCancelled
}

// Event represents an organized event with a fixed registration capacity.
// swagger:model Event
type Event struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Location          string      `json:"location"`
	OrganizerID       string      `json:"organizer_id"`
	OrganizerEmail    string      `json:"organizer_email,omitempty"`
	Capacity          int         `json:"capacity"`
	RegistrationCount int         `json:"registration_count"`
	Status            EventStatus `json:"status"`
	RejectionReason   *string     `json:"rejection_reason,omitempty"`
	StartTime         time.Time   `json:"start_time"`
	EndTime           time.Time   `json:"end_time"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// NewEvent returns a PENDING event with no registrations. ID is typically set by the repository on create.
func NewEvent(title, description, location, organizerID, organizerEmail string, capacity int, start, end, now time.Time) *Event {
	return &Event{
		Title:          title,
		Description:    description,
		Location:       location,
		OrganizerID:    organizerID,
		OrganizerEmail: organizerEmail,
		Capacity:       capacity,
		Status:         EventPending,
		StartTime:      start,
		EndTime:        end,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Unlimited reports whether the event has no capacity bound (capacity 0).
func (e *Event) Unlimited() bool {
	return e.Capacity == 0
}

// Remaining returns the free seats, or -1 when capacity is unlimited.
func (e *Event) Remaining() int {
	if e.Unlimited() {
		return -1
	}
	if r := e.Capacity - e.RegistrationCount; r > 0 {
		return r
	}
	return 0
}

// HasStarted reports whether now is at or past the start time.
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartTime)
}

// HasEnded reports whether now is at or past the end time.
func (e *Event) HasEnded(now time.Time) bool {
	return !now.Before(e.EndTime)
}

// IsOrganizer reports whether userID created the event.
func (e *Event) IsOrganizer(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}

// CreateEventInput carries the organizer-supplied fields for a new event.
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	Capacity    int
	StartTime   time.Time
	EndTime     time.Time
}

// UpdateEventInput carries the fields an edit changes. Nil fields are left as they are.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Location    *string
	Capacity    *int
	StartTime   *time.Time
	EndTime     *time.Time
}

// Empty reports whether the edit changes nothing.
func (in UpdateEventInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Location == nil &&
		in.Capacity == nil && in.StartTime == nil && in.EndTime == nil
}

// EventFilter narrows an event listing. Zero fields match everything.
type EventFilter struct {
	Status      EventStatus
	OrganizerID string
}

// LedgerCount compares the recorded registration counter with the actual number of registrations.
type LedgerCount struct {
	EventID  string `json:"event_id"`
	Capacity int    `json:"capacity"`
	Recorded int    `json:"recorded"`
	Actual   int    `json:"actual"`
}

// Drifted reports whether the counter disagrees with the registration rows.
func (c LedgerCount) Drifted() bool {
	return c.Recorded != c.Actual
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetForUpdate reads the event and holds its row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Event, error)
	UpdateStatus(ctx context.Context, id string, status EventStatus, rejectionReason *string, at time.Time) (*Event, error)
	// UpdateDetails persists the editable fields of e (title, description, location, capacity, times, updated_at).
	// Status and the registration counter are never written here.
	UpdateDetails(ctx context.Context, e *Event) (*Event, error)
	// List returns one page of events ordered by start time, plus the total matching count.
	List(ctx context.Context, filter EventFilter, p PaginationParams) ([]*Event, int, error)
	ListLedgerCounts(ctx context.Context) ([]LedgerCount, error)
}

// CapacityLedger is the per-event registration counter. All changes to
// Event.RegistrationCount go through it.
type CapacityLedger interface {
	// TryReserve atomically increments the counter when a seat is free and returns the new count.
	// It returns ErrCapacityExceeded when the event is full and ErrNotFound when it does not exist.
	TryReserve(ctx context.Context, eventID string) (int, error)
	// Release atomically decrements the counter and returns the new count.
	// It returns ErrLedgerUnderflow (count stays 0) when the counter was already zero.
	Release(ctx context.Context, eventID string) (int, error)
	// Recount resets the counter to the number of registration rows and returns the previous and new values.
	Recount(ctx context.Context, eventID string) (before, after int, err error)
}

// EventWorkflow is the coordinator surface for event lifecycle operations.
type EventWorkflow interface {
	CreateEvent(ctx context.Context, caller Identity, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, caller Identity, eventID string) (*Event, error)
	ListEvents(ctx context.Context, caller Identity, filter EventFilter, p PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, caller Identity, eventID string, in UpdateEventInput) (*Event, error)
	ApproveEvent(ctx context.Context, caller Identity, eventID string) (*Event, error)
	RejectEvent(ctx context.Context, caller Identity, eventID, reason string) (*Event, error)
	CancelEvent(ctx context.Context, caller Identity, eventID string) (*Event, error)
}
