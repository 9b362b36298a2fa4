package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventflow/internal/domain"
)

// Defaults applied by NewCoordinator when an option is left zero.
const (
	DefaultBusyRetries    = 3
	DefaultRetryBackoff   = 25 * time.Millisecond
	DefaultContextTimeout = 5 * time.Second
	notifyTimeout         = 10 * time.Second
)

// CoordinatorOptions tunes retry and timeout behaviour.
type CoordinatorOptions struct {
	// BusyRetries is how many times an operation failing with ErrBusy is re-run. Negative disables retries.
	BusyRetries    int
	RetryBackoff   time.Duration
	ContextTimeout time.Duration
	Clock          func() time.Time
	Logger         *slog.Logger
}

// Coordinator is the single entry point for workflow mutations. Every operation
// runs the relevant guards on state read inside one store transaction, under the
// per-key locks of the aggregates it touches.
type Coordinator struct {
	store    domain.Store
	locker   domain.Locker
	notifier domain.Notifier
	opts     CoordinatorOptions
	log      *slog.Logger
}

var (
	_ domain.EventWorkflow        = (*Coordinator)(nil)
	_ domain.RegistrationWorkflow = (*Coordinator)(nil)
	_ domain.ReportWorkflow       = (*Coordinator)(nil)
)

// NewCoordinator wires the coordinator. notifier may be nil.
func NewCoordinator(store domain.Store, locker domain.Locker, notifier domain.Notifier, opts CoordinatorOptions) *Coordinator {
	if opts.BusyRetries == 0 {
		opts.BusyRetries = DefaultBusyRetries
	}
	if opts.BusyRetries < 0 {
		opts.BusyRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.ContextTimeout <= 0 {
		opts.ContextTimeout = DefaultContextTimeout
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:    store,
		locker:   locker,
		notifier: notifier,
		opts:     opts,
		log:      logger,
	}
}

func (c *Coordinator) now() time.Time {
	return c.opts.Clock()
}

// mutate runs fn in a transaction while holding keys. ErrBusy from either the
// locker or the store is retried up to BusyRetries times with linear backoff;
// every other failure is returned immediately. The whole call is bounded by
// ContextTimeout.
func (c *Coordinator) mutate(ctx context.Context, op string, keys []string, fn func(tx domain.Repositories) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ContextTimeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		err := c.attempt(ctx, keys, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrBusy) || attempt >= c.opts.BusyRetries {
			return normalize(err)
		}
		c.log.Warn("Retrying contended operation", "op", op, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", domain.ErrTimeout, op, ctx.Err())
		case <-time.After(c.opts.RetryBackoff * time.Duration(attempt+1)):
		}
	}
}

func (c *Coordinator) attempt(ctx context.Context, keys []string, fn func(tx domain.Repositories) error) error {
	unlock, err := c.locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()
	return c.store.WithinTx(ctx, fn)
}

// normalize turns a bare context error into ErrTimeout so callers always see a taxonomy kind.
func normalize(err error) error {
	if err == nil || domain.KindOf(err) != domain.KindInternal {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// notify runs a best-effort notification detached from the request deadline.
func (c *Coordinator) notify(ctx context.Context, op string, send func(ctx context.Context, n domain.Notifier) error) {
	if c.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := send(ctx, c.notifier); err != nil {
		c.log.Error("Failed to send notification", "op", op, "error", err)
	}
}

func (c *Coordinator) audit(ctx context.Context, tx domain.Repositories, op, kind, id string, caller domain.Identity, payload map[string]any) error {
	entry := domain.AuditEntry{
		Op:         op,
		EntityKind: kind,
		EntityID:   id,
		ActorID:    caller.UserID,
		Payload:    payload,
		TS:         c.now(),
	}
	if err := tx.Audit().Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// eventNotFound maps a repository miss on an event id.
func eventNotFound(err error, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrEventNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func reportNotFound(err error, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrReportNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}
