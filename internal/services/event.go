package services

import (
	"context"
	"fmt"
	"strings"

	"eventflow/internal/domain"
	"eventflow/internal/lock"
	"eventflow/internal/workflow"
)

func (c *Coordinator) CreateEvent(ctx context.Context, caller domain.Identity, in domain.CreateEventInput) (*domain.Event, error) {
	if err := workflow.ValidateNewEvent(in); err != nil {
		return nil, err
	}
	now := c.now()
	ev := domain.NewEvent(
		strings.TrimSpace(in.Title), in.Description, in.Location,
		caller.UserID, caller.Email, in.Capacity, in.StartTime.UTC(), in.EndTime.UTC(), now,
	)
	err := c.mutate(ctx, "create_event", nil, func(tx domain.Repositories) error {
		ev.ID = ""
		if err := tx.Events().Create(ctx, ev); err != nil {
			return err
		}
		return c.audit(ctx, tx, "event.create", "event", ev.ID, caller, map[string]any{
			"status":   ev.Status,
			"capacity": ev.Capacity,
		})
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Event created", "event_id", ev.ID, "organizer_id", ev.OrganizerID)
	return ev, nil
}

func (c *Coordinator) GetEvent(ctx context.Context, caller domain.Identity, eventID string) (*domain.Event, error) {
	ev, err := c.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, normalize(eventNotFound(err, "get event"))
	}
	if !caller.IsReviewer() && !ev.IsOrganizer(caller.UserID) {
		ev.OrganizerEmail = ""
	}
	return ev, nil
}

// ListEvents pages through events. Reviewers see every event; other callers see
// APPROVED events and, when they filter on themselves as organizer, their own.
func (c *Coordinator) ListEvents(ctx context.Context, caller domain.Identity, filter domain.EventFilter, p domain.PaginationParams) ([]*domain.Event, int, error) {
	filter, err := scopeEventFilter(caller, filter)
	if err != nil {
		return nil, 0, err
	}
	events, total, err := c.store.Events().List(ctx, filter, p)
	if err != nil {
		return nil, 0, normalize(fmt.Errorf("list events: %w", err))
	}
	for _, ev := range events {
		if !caller.IsReviewer() && !ev.IsOrganizer(caller.UserID) {
			ev.OrganizerEmail = ""
		}
	}
	return events, total, nil
}

func scopeEventFilter(caller domain.Identity, f domain.EventFilter) (domain.EventFilter, error) {
	if caller.IsReviewer() || (f.OrganizerID != "" && f.OrganizerID == caller.UserID) {
		return f, nil
	}
	switch f.Status {
	case "":
		f.Status = domain.EventApproved
		return f, nil
	case domain.EventApproved:
		return f, nil
	}
	return f, fmt.Errorf("%w: only reviewers may list %s events of other organizers", domain.ErrForbidden, f.Status)
}

// UpdateEvent edits the details of a PENDING or APPROVED event under the event lock.
// Lowering capacity below the current registration count fails with ErrValidation.
func (c *Coordinator) UpdateEvent(ctx context.Context, caller domain.Identity, eventID string, in domain.UpdateEventInput) (*domain.Event, error) {
	var updated *domain.Event
	err := c.mutate(ctx, "event.update", []string{lock.EventKey(eventID)}, func(tx domain.Repositories) error {
		ev, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "get event")
		}
		before := *ev
		if err := workflow.ApplyEventUpdate(ev, caller, in, c.now()); err != nil {
			return err
		}
		updated, err = tx.Events().UpdateDetails(ctx, ev)
		if err != nil {
			return eventNotFound(err, "update event")
		}
		return c.audit(ctx, tx, "event.update", "event", eventID, caller, eventChanges(&before, updated))
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Event updated", "event_id", eventID, "capacity", updated.Capacity, "actor_id", caller.UserID)
	return updated, nil
}

// eventChanges lists the edited fields as {from, to} pairs.
func eventChanges(before, after *domain.Event) map[string]any {
	changes := make(map[string]any)
	diff := func(name string, from, to any) {
		if from != to {
			changes[name] = map[string]any{"from": from, "to": to}
		}
	}
	diff("title", before.Title, after.Title)
	diff("description", before.Description, after.Description)
	diff("location", before.Location, after.Location)
	diff("capacity", before.Capacity, after.Capacity)
	diff("start_time", before.StartTime.UTC(), after.StartTime.UTC())
	diff("end_time", before.EndTime.UTC(), after.EndTime.UTC())
	return changes
}

func (c *Coordinator) ApproveEvent(ctx context.Context, caller domain.Identity, eventID string) (*domain.Event, error) {
	return c.transitionEvent(ctx, caller, eventID, workflow.ActionApprove, "")
}

func (c *Coordinator) RejectEvent(ctx context.Context, caller domain.Identity, eventID, reason string) (*domain.Event, error) {
	return c.transitionEvent(ctx, caller, eventID, workflow.ActionReject, reason)
}

func (c *Coordinator) CancelEvent(ctx context.Context, caller domain.Identity, eventID string) (*domain.Event, error) {
	return c.transitionEvent(ctx, caller, eventID, workflow.ActionCancel, "")
}

func (c *Coordinator) transitionEvent(ctx context.Context, caller domain.Identity, eventID string, action workflow.EventAction, reason string) (*domain.Event, error) {
	op := "event." + string(action)
	var updated *domain.Event
	err := c.mutate(ctx, op, []string{lock.EventKey(eventID)}, func(tx domain.Repositories) error {
		ev, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "get event")
		}
		from := ev.Status
		if err := workflow.ApplyEvent(ev, caller, action, reason, c.now()); err != nil {
			return err
		}
		updated, err = tx.Events().UpdateStatus(ctx, eventID, ev.Status, ev.RejectionReason, ev.UpdatedAt)
		if err != nil {
			return eventNotFound(err, "update event status")
		}
		payload := map[string]any{"from": from, "to": updated.Status}
		if updated.RejectionReason != nil {
			payload["reason"] = *updated.RejectionReason
		}
		return c.audit(ctx, tx, op, "event", eventID, caller, payload)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Event transitioned", "op", op, "event_id", eventID, "status", updated.Status, "actor_id", caller.UserID)

	if action == workflow.ActionApprove || action == workflow.ActionReject {
		c.notify(ctx, op, func(ctx context.Context, n domain.Notifier) error {
			return n.EventReviewed(ctx, updated)
		})
	}
	return updated, nil
}
