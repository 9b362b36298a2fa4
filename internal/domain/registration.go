package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the state of one (user, event) pair.
type RegistrationStatus string

const (
	RegistrationNone   RegistrationStatus = "NONE"
	RegistrationActive RegistrationStatus = "ACTIVE"
)

// EventRegistration represents an attendee's active registration for an event.
// The row exists only while the registration is ACTIVE; cancelling deletes it.
// swagger:model EventRegistration
type EventRegistration struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	UserID      string     `json:"user_id"`
	Attended    bool       `json:"attended"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewEventRegistration creates a new EventRegistration. ID is typically set by the repository on create.
func NewEventRegistration(eventID, userID string, createdAt, updatedAt time.Time) *EventRegistration {
	return &EventRegistration{
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Status returns ACTIVE for an existing row and NONE for a nil registration.
func (r *EventRegistration) Status() RegistrationStatus {
	if r == nil {
		return RegistrationNone
	}
	return RegistrationActive
}

// RegistrationResult is the aggregate returned by registration operations:
// the caller's registration state together with the event's current counter.
type RegistrationResult struct {
	Event        *Event             `json:"event"`
	Registration *EventRegistration `json:"registration"`
	Status       RegistrationStatus `json:"status"`
}

// EventRegistrationRepository defines storage operations for event registrations.
type EventRegistrationRepository interface {
	Create(ctx context.Context, reg *EventRegistration) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*EventRegistration, error)
	Delete(ctx context.Context, eventID, userID string) error
	ListByEventID(ctx context.Context, eventID string, p PaginationParams) ([]*EventRegistration, int, error)
	MarkAttended(ctx context.Context, eventID, userID string, at time.Time) (*EventRegistration, error)
}

// RegistrationWorkflow is the coordinator surface for attendee registration.
type RegistrationWorkflow interface {
	Register(ctx context.Context, caller Identity, eventID string) (*RegistrationResult, error)
	CancelRegistration(ctx context.Context, caller Identity, eventID string) (*RegistrationResult, error)
	GetMyRegistration(ctx context.Context, caller Identity, eventID string) (*RegistrationResult, error)
	ListEventRegistrations(ctx context.Context, caller Identity, eventID string, p PaginationParams) ([]*EventRegistration, int, error)
	CheckIn(ctx context.Context, caller Identity, eventID, userID string) (*EventRegistration, error)
}
