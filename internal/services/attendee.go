package services

import (
	"context"
	"errors"
	"fmt"

	"eventflow/internal/domain"
	"eventflow/internal/lock"
	"eventflow/internal/workflow"
)

func registrationKeys(eventID, userID string) []string {
	return []string{lock.RegistrationKey(eventID, userID), lock.EventKey(eventID)}
}

// findRegistration returns nil (state NONE) when the user holds no registration.
func findRegistration(ctx context.Context, repo domain.EventRegistrationRepository, eventID, userID string) (*domain.EventRegistration, error) {
	reg, err := repo.GetByEventAndUser(ctx, eventID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event registration: %w", err)
	}
	return reg, nil
}

// Register reserves a seat and records an ACTIVE registration for the caller.
// The reservation and the record are committed together or not at all.
func (c *Coordinator) Register(ctx context.Context, caller domain.Identity, eventID string) (*domain.RegistrationResult, error) {
	var result *domain.RegistrationResult
	err := c.mutate(ctx, "registration.register", registrationKeys(eventID, caller.UserID), func(tx domain.Repositories) error {
		ev, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "get event")
		}
		existing, err := findRegistration(ctx, tx.Registrations(), eventID, caller.UserID)
		if err != nil {
			return err
		}
		now := c.now()
		if err := workflow.CheckRegister(ev, existing, now); err != nil {
			return err
		}

		count, err := tx.Ledger().TryReserve(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "reserve seat")
		}
		reg := domain.NewEventRegistration(eventID, caller.UserID, now, now)
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			return fmt.Errorf("create event registration: %w", err)
		}
		ev.RegistrationCount = count

		if err := c.audit(ctx, tx, "registration.register", "event", eventID, caller, map[string]any{
			"user_id":            caller.UserID,
			"registration_count": count,
		}); err != nil {
			return err
		}
		result = &domain.RegistrationResult{Event: ev, Registration: reg, Status: domain.RegistrationActive}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Registered for event", "event_id", eventID, "user_id", caller.UserID, "registration_count", result.Event.RegistrationCount)
	return result, nil
}

// CancelRegistration removes the caller's ACTIVE registration and releases the seat.
// It is allowed regardless of event status or start time.
func (c *Coordinator) CancelRegistration(ctx context.Context, caller domain.Identity, eventID string) (*domain.RegistrationResult, error) {
	var result *domain.RegistrationResult
	err := c.mutate(ctx, "registration.cancel", registrationKeys(eventID, caller.UserID), func(tx domain.Repositories) error {
		ev, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "get event")
		}
		existing, err := findRegistration(ctx, tx.Registrations(), eventID, caller.UserID)
		if err != nil {
			return err
		}
		if err := workflow.CheckCancel(existing); err != nil {
			return err
		}

		if err := tx.Registrations().Delete(ctx, eventID, caller.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotRegistered
			}
			return fmt.Errorf("delete event registration: %w", err)
		}
		count, err := tx.Ledger().Release(ctx, eventID)
		switch {
		case errors.Is(err, domain.ErrLedgerUnderflow):
			c.log.Error("Capacity ledger underflow on cancel", "event_id", eventID, "user_id", caller.UserID)
			count = 0
		case err != nil:
			return eventNotFound(err, "release seat")
		}
		ev.RegistrationCount = count

		if err := c.audit(ctx, tx, "registration.cancel", "event", eventID, caller, map[string]any{
			"user_id":            caller.UserID,
			"registration_count": count,
		}); err != nil {
			return err
		}
		result = &domain.RegistrationResult{Event: ev, Status: domain.RegistrationNone}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Cancelled event registration", "event_id", eventID, "user_id", caller.UserID, "registration_count", result.Event.RegistrationCount)
	return result, nil
}

// GetMyRegistration reports the caller's registration state for the event.
func (c *Coordinator) GetMyRegistration(ctx context.Context, caller domain.Identity, eventID string) (*domain.RegistrationResult, error) {
	ev, err := c.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, normalize(eventNotFound(err, "get event"))
	}
	reg, err := findRegistration(ctx, c.store.Registrations(), eventID, caller.UserID)
	if err != nil {
		return nil, normalize(err)
	}
	if !caller.IsReviewer() && !ev.IsOrganizer(caller.UserID) {
		ev.OrganizerEmail = ""
	}
	return &domain.RegistrationResult{Event: ev, Registration: reg, Status: reg.Status()}, nil
}

func requireOrganizerOrReviewer(ev *domain.Event, caller domain.Identity, action string) error {
	if caller.IsReviewer() || ev.IsOrganizer(caller.UserID) {
		return nil
	}
	return fmt.Errorf("%w: %s requires the organizer or a reviewer", domain.ErrForbidden, action)
}

// ListEventRegistrations pages through the event's registrations. Organizer or reviewer only.
func (c *Coordinator) ListEventRegistrations(ctx context.Context, caller domain.Identity, eventID string, p domain.PaginationParams) ([]*domain.EventRegistration, int, error) {
	ev, err := c.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, 0, normalize(eventNotFound(err, "get event"))
	}
	if err := requireOrganizerOrReviewer(ev, caller, "listing registrations"); err != nil {
		return nil, 0, err
	}
	regs, total, err := c.store.Registrations().ListByEventID(ctx, eventID, p)
	if err != nil {
		return nil, 0, normalize(fmt.Errorf("list event registrations: %w", err))
	}
	return regs, total, nil
}

// CheckIn marks userID's registration attended. Organizer or reviewer only.
func (c *Coordinator) CheckIn(ctx context.Context, caller domain.Identity, eventID, userID string) (*domain.EventRegistration, error) {
	var checkedIn *domain.EventRegistration
	err := c.mutate(ctx, "registration.check_in", []string{lock.RegistrationKey(eventID, userID)}, func(tx domain.Repositories) error {
		ev, err := tx.Events().GetByID(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "get event")
		}
		if err := requireOrganizerOrReviewer(ev, caller, "check-in"); err != nil {
			return err
		}
		existing, err := findRegistration(ctx, tx.Registrations(), eventID, userID)
		if err != nil {
			return err
		}
		if err := workflow.CheckCheckIn(existing); err != nil {
			return err
		}
		checkedIn, err = tx.Registrations().MarkAttended(ctx, eventID, userID, c.now())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotRegistered
			}
			return fmt.Errorf("mark attended: %w", err)
		}
		return c.audit(ctx, tx, "registration.check_in", "event", eventID, caller, map[string]any{"user_id": userID})
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Attendee checked in", "event_id", eventID, "user_id", userID, "actor_id", caller.UserID)
	return checkedIn, nil
}
