// Package workflow holds the state machines of the registration and approval
// workflow as pure functions. Nothing here touches storage or locks; callers run
// these guards on freshly read state inside their own atomic unit.
package workflow

import (
	"fmt"
	"time"

	"eventflow/internal/domain"
)

// HasCapacity reports whether one more registration fits. Capacity 0 is unlimited.
func HasCapacity(capacity, count int) bool {
	return capacity == 0 || count < capacity
}

// CheckRegister runs the register guards in order: event exists, is approved,
// has not started, and the caller is not already registered. The capacity check
// belongs to the ledger and runs after these pass.
func CheckRegister(ev *domain.Event, existing *domain.EventRegistration, now time.Time) error {
	if ev == nil {
		return domain.ErrEventNotFound
	}
	if ev.Status != domain.EventApproved {
		return fmt.Errorf("%w: event status is %s", domain.ErrEventNotApproved, ev.Status)
	}
	if ev.HasStarted(now) {
		return fmt.Errorf("%w: event started at %s", domain.ErrEventAlreadyStarted, ev.StartTime.UTC().Format(time.RFC3339))
	}
	if existing.Status() == domain.RegistrationActive {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

// CheckCancel requires an ACTIVE registration. Event status and start time are not consulted.
func CheckCancel(existing *domain.EventRegistration) error {
	if existing.Status() != domain.RegistrationActive {
		return domain.ErrNotRegistered
	}
	return nil
}

// CheckCheckIn requires an ACTIVE registration that has not been checked in yet.
func CheckCheckIn(existing *domain.EventRegistration) error {
	if existing.Status() != domain.RegistrationActive {
		return domain.ErrNotRegistered
	}
	if existing.Attended {
		return fmt.Errorf("%w: attendee already checked in", domain.ErrInvalidTransition)
	}
	return nil
}
