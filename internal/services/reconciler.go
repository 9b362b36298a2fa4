package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventflow/internal/domain"
	"eventflow/internal/lock"

	"github.com/go-co-op/gocron/v2"
)

// systemActor is recorded in the audit trail for transitions made by background jobs.
var systemActor = domain.Identity{UserID: "system", Role: domain.RoleAdmin}

// LedgerRepair is the outcome of recounting one event.
type LedgerRepair struct {
	EventID string `json:"event_id"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
}

// RepairLedger resets the event's counter to its number of registrations under the event lock.
func (c *Coordinator) RepairLedger(ctx context.Context, eventID string) (LedgerRepair, error) {
	repair := LedgerRepair{EventID: eventID}
	err := c.mutate(ctx, "ledger.recount", []string{lock.EventKey(eventID)}, func(tx domain.Repositories) error {
		before, after, err := tx.Ledger().Recount(ctx, eventID)
		if err != nil {
			return eventNotFound(err, "recount ledger")
		}
		repair.Before, repair.After = before, after
		if before == after {
			return nil
		}
		return c.audit(ctx, tx, "ledger.recount", "event", eventID, systemActor, map[string]any{
			"before": before,
			"after":  after,
		})
	})
	return repair, err
}

// LedgerReconciler finds events whose registration counter disagrees with their
// registration rows and repairs them.
type LedgerReconciler struct {
	store domain.Store
	coord *Coordinator
}

func NewLedgerReconciler(store domain.Store, coord *Coordinator) *LedgerReconciler {
	return &LedgerReconciler{store: store, coord: coord}
}

// Check returns the recorded and actual counts for every event.
func (r *LedgerReconciler) Check(ctx context.Context) ([]domain.LedgerCount, error) {
	counts, err := r.store.Events().ListLedgerCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger counts: %w", err)
	}
	return counts, nil
}

// Reconcile repairs every drifted event and returns what it changed. A failure on
// one event is logged and does not stop the others.
func (r *LedgerReconciler) Reconcile(ctx context.Context) ([]LedgerRepair, error) {
	counts, err := r.Check(ctx)
	if err != nil {
		return nil, err
	}
	var repairs []LedgerRepair
	for _, c := range counts {
		if !c.Drifted() {
			continue
		}
		slog.Error("Capacity ledger drift detected",
			"event_id", c.EventID, "recorded", c.Recorded, "actual", c.Actual, "capacity", c.Capacity)
		repair, err := r.coord.RepairLedger(ctx, c.EventID)
		if err != nil {
			slog.Error("Failed to repair capacity ledger", "event_id", c.EventID, "error", err)
			continue
		}
		if repair.Before != repair.After {
			repairs = append(repairs, repair)
		}
	}
	return repairs, nil
}

// Start runs Reconcile every interval until ctx is done.
func (r *LedgerReconciler) Start(ctx context.Context, interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			repairs, err := r.Reconcile(ctx)
			if err != nil {
				slog.Error("Ledger reconciliation failed", "error", err)
				return
			}
			slog.Debug("Ledger reconciliation finished", "repaired", len(repairs))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	slog.Info("Starting ledger reconciliation job", "interval", interval.String())
	scheduler.Start()
	<-ctx.Done()
	return scheduler.Shutdown()
}
