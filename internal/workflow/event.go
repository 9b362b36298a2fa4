package workflow

import (
	"fmt"
	"strings"
	"time"

	"eventflow/internal/domain"
)

// EventAction is a lifecycle command on an event.
type EventAction string

const (
	ActionApprove EventAction = "approve"
	ActionReject  EventAction = "reject"
	ActionCancel  EventAction = "cancel"
)

type authority int

const (
	reviewerOnly authority = iota
	organizerOrReviewer
)

type eventTransition struct {
	From      domain.EventStatus
	Action    EventAction
	To        domain.EventStatus
	Authority authority
}

var eventTransitions = []eventTransition{
	{From: domain.EventPending, Action: ActionApprove, To: domain.EventApproved, Authority: reviewerOnly},
	{From: domain.EventPending, Action: ActionReject, To: domain.EventRejected, Authority: reviewerOnly},
	{From: domain.EventApproved, Action: ActionCancel, To: domain.EventCancelled, Authority: organizerOrReviewer},
}

func authorityFor(action EventAction) (authority, bool) {
	for _, t := range eventTransitions {
		if t.Action == action {
			return t.Authority, true
		}
	}
	return 0, false
}

// AuthorizeEvent checks that caller may perform action on ev. It does not look at the status.
func AuthorizeEvent(ev *domain.Event, caller domain.Identity, action EventAction) error {
	auth, ok := authorityFor(action)
	if !ok {
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidTransition, action)
	}
	switch auth {
	case reviewerOnly:
		if !caller.IsReviewer() {
			return fmt.Errorf("%w: %s requires MANAGER or ADMIN", domain.ErrForbidden, action)
		}
	case organizerOrReviewer:
		if !caller.IsReviewer() && !ev.IsOrganizer(caller.UserID) {
			return fmt.Errorf("%w: %s requires the organizer or a reviewer", domain.ErrForbidden, action)
		}
	}
	return nil
}

// NextEventStatus returns the status reached by applying action in status from.
func NextEventStatus(from domain.EventStatus, action EventAction) (domain.EventStatus, error) {
	for _, t := range eventTransitions {
		if t.From == from && t.Action == action {
			return t.To, nil
		}
	}
	if from.Terminal() {
		return "", fmt.Errorf("%w: event is %s", domain.ErrInvalidTransition, from)
	}
	return "", fmt.Errorf("%w: cannot %s a %s event", domain.ErrInvalidTransition, action, from)
}

// ApplyEvent authorizes the caller, checks the transition and validates the reason
// (mandatory for reject), then updates ev in place. ev is untouched on error.
func ApplyEvent(ev *domain.Event, caller domain.Identity, action EventAction, reason string, now time.Time) error {
	if err := AuthorizeEvent(ev, caller, action); err != nil {
		return err
	}
	to, err := NextEventStatus(ev.Status, action)
	if err != nil {
		return err
	}
	var rejection *string
	if action == ActionReject {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
		}
		rejection = &reason
	}
	ev.Status = to
	ev.RejectionReason = rejection
	ev.UpdatedAt = now
	return nil
}

// ValidateNewEvent checks organizer-supplied fields for a new event.
func ValidateNewEvent(in domain.CreateEventInput) error {
	var problems []string
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "title is required")
	}
	if in.Capacity < 0 {
		problems = append(problems, "capacity must not be negative")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		problems = append(problems, "start_time and end_time are required")
	} else if in.EndTime.Before(in.StartTime) {
		problems = append(problems, "end_time must not be before start_time")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// ApplyEventUpdate edits ev in place after checking, in order, that the caller is the
// organizer or a reviewer, that the event is still PENDING or APPROVED, and that the
// merged fields are valid. A capacity below the current registration count is rejected;
// capacity 0 (unlimited) is always accepted. ev is untouched on error.
func ApplyEventUpdate(ev *domain.Event, caller domain.Identity, in domain.UpdateEventInput, now time.Time) error {
	if !caller.IsReviewer() && !ev.IsOrganizer(caller.UserID) {
		return fmt.Errorf("%w: editing an event requires the organizer or a reviewer", domain.ErrForbidden)
	}
	if ev.Status.Terminal() {
		return fmt.Errorf("%w: event is %s", domain.ErrInvalidTransition, ev.Status)
	}
	if in.Empty() {
		return fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}

	next := *ev
	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Location != nil {
		next.Location = *in.Location
	}
	if in.Capacity != nil {
		next.Capacity = *in.Capacity
	}
	if in.StartTime != nil {
		next.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		next.EndTime = in.EndTime.UTC()
	}

	if err := ValidateNewEvent(domain.CreateEventInput{
		Title:     next.Title,
		Capacity:  next.Capacity,
		StartTime: next.StartTime,
		EndTime:   next.EndTime,
	}); err != nil {
		return err
	}
	if next.Capacity > 0 && next.Capacity < next.RegistrationCount {
		return fmt.Errorf("%w: capacity %d is below the %d current registrations",
			domain.ErrValidation, next.Capacity, next.RegistrationCount)
	}

	next.UpdatedAt = now
	*ev = next
	return nil
}
