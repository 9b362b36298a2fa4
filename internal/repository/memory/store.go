// Package memory is an in-process implementation of domain.Store. It backs the
// test suites and single-process deployments started without DATABASE_URL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventflow/internal/domain"
	"eventflow/internal/workflow"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Store keeps committed rows in maps. Transactions take row locks on what they
// write or read for update, stage their writes privately and apply them in one
// step on commit, so readers only ever see committed rows. mu guards the maps
// and is never held while waiting for a row.
type Store struct {
	mu            sync.Mutex
	rows          map[string]*semaphore.Weighted
	events        map[string]*domain.Event
	registrations map[string]*domain.EventRegistration
	reports       map[string]*domain.EventReport
	reportByEvent map[string]string
	audit         []domain.AuditEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rows:          make(map[string]*semaphore.Weighted),
		events:        make(map[string]*domain.Event),
		registrations: make(map[string]*domain.EventRegistration),
		reports:       make(map[string]*domain.EventReport),
		reportByEvent: make(map[string]string),
	}
}

var _ domain.Store = (*Store)(nil)

func (s *Store) Events() domain.EventRepository                     { return eventRepo{view{s: s}} }
func (s *Store) Ledger() domain.CapacityLedger                      { return ledger{view{s: s}} }
func (s *Store) Registrations() domain.EventRegistrationRepository { return registrationRepo{view{s: s}} }
func (s *Store) Reports() domain.EventReportRepository              { return reportRepo{view{s: s}} }
func (s *Store) Audit() domain.AuditLog                             { return auditLog{view{s: s}} }

type txRepos struct{ v view }

func (t txRepos) Events() domain.EventRepository                     { return eventRepo{t.v} }
func (t txRepos) Ledger() domain.CapacityLedger                      { return ledger{t.v} }
func (t txRepos) Registrations() domain.EventRegistrationRepository { return registrationRepo{t.v} }
func (t txRepos) Reports() domain.EventReportRepository              { return reportRepo{t.v} }
func (t txRepos) Audit() domain.AuditLog                             { return auditLog{t.v} }

// WithinTx runs fn in one transaction. Staged writes are dropped when fn fails or
// ctx ends before commit. Waiting for a row held by another transaction ends with
// ErrTimeout when ctx does.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	return s.atomically(ctx, func(t *txn) error {
		return fn(txRepos{view{s: s, t: t}})
	})
}

func (s *Store) atomically(ctx context.Context, fn func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	t := newTxn(s)
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	t.commit()
	return nil
}

// AuditEntries returns a copy of the audit trail in append order.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.audit...)
}

// SetRegistrationCount overwrites an event's counter without touching
// registration rows. It exists to simulate ledger drift.
func (s *Store) SetRegistrationCount(eventID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := s.events[eventID]; ok {
		ev.RegistrationCount = n
	}
}

func (s *Store) rowLock(key string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[key]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.rows[key] = l
	}
	return l
}

// txn is one unit of work. A nil registration marks a delete.
type txn struct {
	s             *Store
	held          map[string]*semaphore.Weighted
	events        map[string]*domain.Event
	registrations map[string]*domain.EventRegistration
	reports       map[string]*domain.EventReport
	reportByEvent map[string]string
	audit         []domain.AuditEntry
}

func newTxn(s *Store) *txn {
	return &txn{
		s:             s,
		held:          make(map[string]*semaphore.Weighted),
		events:        make(map[string]*domain.Event),
		registrations: make(map[string]*domain.EventRegistration),
		reports:       make(map[string]*domain.EventReport),
		reportByEvent: make(map[string]string),
	}
}

// lock takes the row lock for key until the transaction ends.
func (t *txn) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := t.s.rowLock(key)
	if err := l.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: waiting for %s: %v", domain.ErrTimeout, key, err)
	}
	t.held[key] = l
	return nil
}

func (t *txn) release() {
	for _, l := range t.held {
		l.Release(1)
	}
}

func (t *txn) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range t.events {
		s.events[id] = e
	}
	for key, reg := range t.registrations {
		if reg == nil {
			delete(s.registrations, key)
			continue
		}
		s.registrations[key] = reg
	}
	for id, rep := range t.reports {
		s.reports[id] = rep
	}
	for eventID, id := range t.reportByEvent {
		s.reportByEvent[eventID] = id
	}
	s.audit = append(s.audit, t.audit...)
}

func (t *txn) event(id string) (*domain.Event, bool) {
	if e, ok := t.events[id]; ok {
		return cloneEvent(e), true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	e, ok := t.s.events[id]
	if !ok {
		return nil, false
	}
	return cloneEvent(e), true
}

func (t *txn) allEvents() []*domain.Event {
	merged := make(map[string]*domain.Event)
	t.s.mu.Lock()
	for id, e := range t.s.events {
		merged[id] = cloneEvent(e)
	}
	t.s.mu.Unlock()
	for id, e := range t.events {
		merged[id] = cloneEvent(e)
	}
	out := make([]*domain.Event, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	return out
}

func (t *txn) registration(key string) (*domain.EventRegistration, bool) {
	if reg, ok := t.registrations[key]; ok {
		if reg == nil {
			return nil, false
		}
		return cloneRegistration(reg), true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	reg, ok := t.s.registrations[key]
	if !ok {
		return nil, false
	}
	return cloneRegistration(reg), true
}

// registrationsOf returns the visible registrations of eventID, or of every event when eventID is empty.
func (t *txn) registrationsOf(eventID string) []*domain.EventRegistration {
	match := func(reg *domain.EventRegistration) bool { return eventID == "" || reg.EventID == eventID }
	merged := make(map[string]*domain.EventRegistration)
	t.s.mu.Lock()
	for key, reg := range t.s.registrations {
		if match(reg) {
			merged[key] = cloneRegistration(reg)
		}
	}
	t.s.mu.Unlock()
	for key, reg := range t.registrations {
		switch {
		case reg == nil:
			delete(merged, key)
		case match(reg):
			merged[key] = cloneRegistration(reg)
		}
	}
	out := make([]*domain.EventRegistration, 0, len(merged))
	for _, reg := range merged {
		out = append(out, reg)
	}
	return out
}

func (t *txn) report(id string) (*domain.EventReport, bool) {
	rep, ok := t.reports[id]
	if !ok {
		t.s.mu.Lock()
		rep, ok = t.s.reports[id]
		t.s.mu.Unlock()
	}
	if !ok {
		return nil, false
	}
	c := cloneReport(rep)
	c.Refresh()
	return c, true
}

func (t *txn) reportIDFor(eventID string) (string, bool) {
	if id, ok := t.reportByEvent[eventID]; ok {
		return id, true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	id, ok := t.s.reportByEvent[eventID]
	return id, ok
}

func (t *txn) allReports() []*domain.EventReport {
	merged := make(map[string]*domain.EventReport)
	t.s.mu.Lock()
	for id, rep := range t.s.reports {
		merged[id] = cloneReport(rep)
	}
	t.s.mu.Unlock()
	for id, rep := range t.reports {
		merged[id] = cloneReport(rep)
	}
	out := make([]*domain.EventReport, 0, len(merged))
	for _, rep := range merged {
		rep.Refresh()
		out = append(out, rep)
	}
	return out
}

// view is the repository set handed out by the store. Outside a transaction t is
// nil and every call runs as its own transaction.
type view struct {
	s *Store
	t *txn
}

func (v view) run(ctx context.Context, fn func(t *txn) error) error {
	if v.t != nil {
		return fn(v.t)
	}
	return v.s.atomically(ctx, fn)
}

func eventKey(id string) string        { return "event:" + id }
func registrationRow(key string) string { return "registration:" + key }
func reportKey(id string) string       { return "report:" + id }
func eventReportKey(id string) string  { return "event-report:" + id }

func registrationKey(eventID, userID string) string {
	return eventID + "/" + userID
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	if e.RejectionReason != nil {
		r := *e.RejectionReason
		c.RejectionReason = &r
	}
	return &c
}

func cloneRegistration(r *domain.EventRegistration) *domain.EventRegistration {
	c := *r
	if r.CheckedInAt != nil {
		t := *r.CheckedInAt
		c.CheckedInAt = &t
	}
	return &c
}

func cloneReport(r *domain.EventReport) *domain.EventReport {
	c := *r
	c.Content.Attachments = append([]string(nil), r.Content.Attachments...)
	if r.RevisionRequest != nil {
		rr := *r.RevisionRequest
		c.RevisionRequest = &rr
	}
	if r.RejectionReason != nil {
		s := *r.RejectionReason
		c.RejectionReason = &s
	}
	if r.ReviewedBy != nil {
		s := *r.ReviewedBy
		c.ReviewedBy = &s
	}
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}

type eventRepo struct{ v view }

func (r eventRepo) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, eventKey(e.ID)); err != nil {
			return err
		}
		if _, ok := t.event(e.ID); ok {
			return fmt.Errorf("event %s already exists", e.ID)
		}
		t.events[e.ID] = cloneEvent(e)
		return nil
	})
}

func (r eventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var ev *domain.Event
	err := r.v.run(ctx, func(t *txn) error {
		e, ok := t.event(id)
		if !ok {
			return domain.ErrNotFound
		}
		ev = e
		return nil
	})
	return ev, err
}

func (r eventRepo) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	var ev *domain.Event
	err := r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, eventKey(id)); err != nil {
			return err
		}
		e, ok := t.event(id)
		if !ok {
			return domain.ErrNotFound
		}
		ev = e
		return nil
	})
	return ev, err
}

// modify applies fn to the locked event row and stages the result.
func (r eventRepo) modify(ctx context.Context, id string, fn func(e *domain.Event) error) (*domain.Event, error) {
	var out *domain.Event
	err := r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, eventKey(id)); err != nil {
			return err
		}
		e, ok := t.event(id)
		if !ok {
			return domain.ErrNotFound
		}
		if err := fn(e); err != nil {
			return err
		}
		t.events[id] = e
		out = cloneEvent(e)
		return nil
	})
	return out, err
}

func (r eventRepo) UpdateStatus(ctx context.Context, id string, status domain.EventStatus, rejectionReason *string, at time.Time) (*domain.Event, error) {
	return r.modify(ctx, id, func(e *domain.Event) error {
		e.Status = status
		e.RejectionReason = nil
		if rejectionReason != nil {
			reason := *rejectionReason
			e.RejectionReason = &reason
		}
		e.UpdatedAt = at
		return nil
	})
}

func (r eventRepo) UpdateDetails(ctx context.Context, in *domain.Event) (*domain.Event, error) {
	return r.modify(ctx, in.ID, func(e *domain.Event) error {
		if in.Capacity > 0 && in.Capacity < e.RegistrationCount {
			return fmt.Errorf("%w: capacity %d is below the %d current registrations",
				domain.ErrValidation, in.Capacity, e.RegistrationCount)
		}
		e.Title = in.Title
		e.Description = in.Description
		e.Location = in.Location
		e.Capacity = in.Capacity
		e.StartTime = in.StartTime
		e.EndTime = in.EndTime
		e.UpdatedAt = in.UpdatedAt
		return nil
	})
}

func (r eventRepo) List(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]*domain.Event, int, error) {
	var (
		page  []*domain.Event
		total int
	)
	err := r.v.run(ctx, func(t *txn) error {
		var all []*domain.Event
		for _, e := range t.allEvents() {
			if (f.Status == "" || e.Status == f.Status) && (f.OrganizerID == "" || e.OrganizerID == f.OrganizerID) {
				all = append(all, e)
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].StartTime.Equal(all[j].StartTime) {
				return all[i].ID < all[j].ID
			}
			return all[i].StartTime.Before(all[j].StartTime)
		})
		start, end := p.Window(len(all))
		page, total = all[start:end:end], len(all)
		return nil
	})
	if page == nil {
		page = []*domain.Event{}
	}
	return page, total, err
}

func (r eventRepo) ListLedgerCounts(ctx context.Context) ([]domain.LedgerCount, error) {
	var counts []domain.LedgerCount
	err := r.v.run(ctx, func(t *txn) error {
		actual := make(map[string]int)
		for _, reg := range t.registrationsOf("") {
			actual[reg.EventID]++
		}
		events := t.allEvents()
		counts = make([]domain.LedgerCount, 0, len(events))
		for _, e := range events {
			counts = append(counts, domain.LedgerCount{
				EventID:  e.ID,
				Capacity: e.Capacity,
				Recorded: e.RegistrationCount,
				Actual:   actual[e.ID],
			})
		}
		sort.Slice(counts, func(i, j int) bool { return counts[i].EventID < counts[j].EventID })
		return nil
	})
	return counts, err
}

type ledger struct{ v view }

// adjust applies fn to the locked event row. The row is staged only when fn succeeds.
func (l ledger) adjust(ctx context.Context, eventID string, fn func(e *domain.Event) error) (int, error) {
	count := 0
	err := l.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, eventKey(eventID)); err != nil {
			return err
		}
		e, ok := t.event(eventID)
		if !ok {
			return domain.ErrNotFound
		}
		err := fn(e)
		count = e.RegistrationCount
		if err != nil {
			return err
		}
		t.events[eventID] = e
		return nil
	})
	return count, err
}

func (l ledger) TryReserve(ctx context.Context, eventID string) (int, error) {
	return l.adjust(ctx, eventID, func(e *domain.Event) error {
		if !workflow.HasCapacity(e.Capacity, e.RegistrationCount) {
			return domain.ErrCapacityExceeded
		}
		e.RegistrationCount++
		return nil
	})
}

func (l ledger) Release(ctx context.Context, eventID string) (int, error) {
	return l.adjust(ctx, eventID, func(e *domain.Event) error {
		if e.RegistrationCount <= 0 {
			e.RegistrationCount = 0
			return domain.ErrLedgerUnderflow
		}
		e.RegistrationCount--
		return nil
	})
}

func (l ledger) Recount(ctx context.Context, eventID string) (int, int, error) {
	before, after := 0, 0
	err := l.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, eventKey(eventID)); err != nil {
			return err
		}
		e, ok := t.event(eventID)
		if !ok {
			return domain.ErrNotFound
		}
		before, after = e.RegistrationCount, len(t.registrationsOf(eventID))
		e.RegistrationCount = after
		t.events[eventID] = e
		return nil
	})
	return before, after, err
}

type registrationRepo struct{ v view }

func (r registrationRepo) Create(ctx context.Context, reg *domain.EventRegistration) error {
	key := registrationKey(reg.EventID, reg.UserID)
	return r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, registrationRow(key)); err != nil {
			return err
		}
		if _, ok := t.registration(key); ok {
			return domain.ErrAlreadyRegistered
		}
		if reg.ID == "" {
			reg.ID = uuid.NewString()
		}
		t.registrations[key] = cloneRegistration(reg)
		return nil
	})
}

func (r registrationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	var out *domain.EventRegistration
	err := r.v.run(ctx, func(t *txn) error {
		reg, ok := t.registration(registrationKey(eventID, userID))
		if !ok {
			return domain.ErrNotFound
		}
		out = reg
		return nil
	})
	return out, err
}

func (r registrationRepo) Delete(ctx context.Context, eventID, userID string) error {
	key := registrationKey(eventID, userID)
	return r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, registrationRow(key)); err != nil {
			return err
		}
		if _, ok := t.registration(key); !ok {
			return domain.ErrNotFound
		}
		t.registrations[key] = nil
		return nil
	})
}

func (r registrationRepo) ListByEventID(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.EventRegistration, int, error) {
	var (
		page  []*domain.EventRegistration
		total int
	)
	err := r.v.run(ctx, func(t *txn) error {
		all := t.registrationsOf(eventID)
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].ID < all[j].ID
			}
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		})
		start, end := p.Window(len(all))
		page, total = all[start:end:end], len(all)
		return nil
	})
	if page == nil {
		page = []*domain.EventRegistration{}
	}
	return page, total, err
}

func (r registrationRepo) MarkAttended(ctx context.Context, eventID, userID string, at time.Time) (*domain.EventRegistration, error) {
	key := registrationKey(eventID, userID)
	var out *domain.EventRegistration
	err := r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, registrationRow(key)); err != nil {
			return err
		}
		reg, ok := t.registration(key)
		if !ok {
			return domain.ErrNotFound
		}
		reg.Attended = true
		reg.CheckedInAt = &at
		reg.UpdatedAt = at
		t.registrations[key] = reg
		out = cloneRegistration(reg)
		return nil
	})
	return out, err
}

type reportRepo struct{ v view }

func (r reportRepo) Create(ctx context.Context, rep *domain.EventReport) error {
	return r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, eventReportKey(rep.EventID)); err != nil {
			return err
		}
		if _, ok := t.reportIDFor(rep.EventID); ok {
			return fmt.Errorf("%w: a report already exists for this event", domain.ErrInvalidTransition)
		}
		if rep.ID == "" {
			rep.ID = uuid.NewString()
		}
		if err := t.lock(ctx, reportKey(rep.ID)); err != nil {
			return err
		}
		t.reports[rep.ID] = cloneReport(rep)
		t.reportByEvent[rep.EventID] = rep.ID
		return nil
	})
}

func (r reportRepo) GetByID(ctx context.Context, id string) (*domain.EventReport, error) {
	var out *domain.EventReport
	err := r.v.run(ctx, func(t *txn) error {
		rep, ok := t.report(id)
		if !ok {
			return domain.ErrNotFound
		}
		out = rep
		return nil
	})
	return out, err
}

func (r reportRepo) GetByEventID(ctx context.Context, eventID string) (*domain.EventReport, error) {
	var out *domain.EventReport
	err := r.v.run(ctx, func(t *txn) error {
		id, ok := t.reportIDFor(eventID)
		if !ok {
			return domain.ErrNotFound
		}
		rep, ok := t.report(id)
		if !ok {
			return domain.ErrNotFound
		}
		out = rep
		return nil
	})
	return out, err
}

func (r reportRepo) GetForUpdate(ctx context.Context, id string) (*domain.EventReport, error) {
	var out *domain.EventReport
	err := r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, reportKey(id)); err != nil {
			return err
		}
		rep, ok := t.report(id)
		if !ok {
			return domain.ErrNotFound
		}
		out = rep
		return nil
	})
	return out, err
}

func (r reportRepo) Update(ctx context.Context, rep *domain.EventReport) error {
	return r.v.run(ctx, func(t *txn) error {
		if err := t.lock(ctx, reportKey(rep.ID)); err != nil {
			return err
		}
		if _, ok := t.report(rep.ID); !ok {
			return domain.ErrNotFound
		}
		t.reports[rep.ID] = cloneReport(rep)
		return nil
	})
}

func (r reportRepo) List(ctx context.Context, f domain.ReportFilter, p domain.PaginationParams) ([]*domain.EventReport, int, error) {
	var (
		page  []*domain.EventReport
		total int
	)
	err := r.v.run(ctx, func(t *txn) error {
		var all []*domain.EventReport
		for _, rep := range t.allReports() {
			if f.Matches(rep) {
				all = append(all, rep)
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
				return all[i].ID < all[j].ID
			}
			return all[i].SubmittedAt.Before(all[j].SubmittedAt)
		})
		start, end := p.Window(len(all))
		page, total = all[start:end:end], len(all)
		return nil
	})
	if page == nil {
		page = []*domain.EventReport{}
	}
	return page, total, err
}

type auditLog struct{ v view }

func (a auditLog) Append(ctx context.Context, entry domain.AuditEntry) error {
	return a.v.run(ctx, func(t *txn) error {
		t.audit = append(t.audit, entry)
		return nil
	})
}
