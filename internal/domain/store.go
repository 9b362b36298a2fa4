package domain

import (
	"context"
	"time"
)

// AuditEntry is one committed workflow transition.
type AuditEntry struct {
	Op         string         `json:"op"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	TS         time.Time      `json:"ts"`
}

// AuditLog appends transition records. Appends made inside a transaction commit with it.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// Repositories groups the stores an operation works with.
type Repositories interface {
	Events() EventRepository
	Ledger() CapacityLedger
	Registrations() EventRegistrationRepository
	Reports() EventReportRepository
	Audit() AuditLog
}

// Store gives non-transactional access to the repositories and runs atomic units of work.
type Store interface {
	Repositories
	// WithinTx runs fn in one transaction. The transaction commits only when fn returns nil
	// and ctx is still live; otherwise nothing fn wrote is kept.
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}

// Locker serializes work per key. Lock acquires every key (in a deterministic order) and
// returns the release function. It fails with ErrBusy when the bounded wait elapses and
// with ErrTimeout when ctx ends first.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Notifier delivers best-effort messages about committed transitions.
type Notifier interface {
	EventReviewed(ctx context.Context, event *Event) error
	ReportRejected(ctx context.Context, report *EventReport, event *Event) error
	RevisionRequested(ctx context.Context, report *EventReport, event *Event) error
}
