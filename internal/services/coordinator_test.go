package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eventflow/internal/domain"
	"eventflow/internal/lock"
	"eventflow/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	organizer = domain.Identity{UserID: "org-1", Role: domain.RoleUser, Email: "org@example.com"}
	manager   = domain.Identity{UserID: "mgr-1", Role: domain.RoleManager, Email: "mgr@example.com"}
	alice     = domain.Identity{UserID: "alice", Role: domain.RoleUser, Email: "alice@example.com"}
	bob       = domain.Identity{UserID: "bob", Role: domain.RoleUser, Email: "bob@example.com"}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) record(call string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	return n.err
}

func (n *recordingNotifier) EventReviewed(ctx context.Context, event *domain.Event) error {
	return n.record(fmt.Sprintf("event_reviewed:%s:%s", event.ID, event.Status))
}

func (n *recordingNotifier) ReportRejected(ctx context.Context, report *domain.EventReport, event *domain.Event) error {
	return n.record(fmt.Sprintf("report_rejected:%s:%s", report.ID, event.Title))
}

func (n *recordingNotifier) RevisionRequested(ctx context.Context, report *domain.EventReport, event *domain.Event) error {
	return n.record(fmt.Sprintf("revision_requested:%s:%s", report.ID, event.Title))
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type fixture struct {
	coord    *Coordinator
	store    *memory.Store
	clock    *testClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	coord := NewCoordinator(store, lock.NewLocal(2*time.Second), notifier, CoordinatorOptions{
		Clock:  clock.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{coord: coord, store: store, clock: clock, notifier: notifier}
}

// approvedEvent creates an event starting tomorrow and approves it.
func (f *fixture) approvedEvent(t *testing.T, capacity int) *domain.Event {
	t.Helper()
	ctx := context.Background()
	start := f.clock.Now().Add(24 * time.Hour)
	ev, err := f.coord.CreateEvent(ctx, organizer, domain.CreateEventInput{
		Title:     "Go Meetup",
		Location:  "Hall A",
		Capacity:  capacity,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	ev, err = f.coord.ApproveEvent(ctx, manager, ev.ID)
	require.NoError(t, err)
	return ev
}

type flakyLocker struct {
	failures int32
	calls    int32
}

func (l *flakyLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	n := atomic.AddInt32(&l.calls, 1)
	if n <= atomic.LoadInt32(&l.failures) {
		return nil, fmt.Errorf("%w: held", domain.ErrBusy)
	}
	return func() {}, nil
}

func TestCoordinator_RetriesBusyThenSucceeds(t *testing.T) {
	store := memory.NewStore()
	locker := &flakyLocker{failures: 2}
	coord := NewCoordinator(store, locker, nil, CoordinatorOptions{
		BusyRetries:  3,
		RetryBackoff: time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ev, err := coord.CreateEvent(context.Background(), organizer, domain.CreateEventInput{
		Title:     "Retry",
		StartTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&locker.calls))
}

func TestCoordinator_BusySurfacesAfterBoundedRetries(t *testing.T) {
	store := memory.NewStore()
	locker := &flakyLocker{failures: 100}
	coord := NewCoordinator(store, locker, nil, CoordinatorOptions{
		BusyRetries:  2,
		RetryBackoff: time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := coord.ApproveEvent(context.Background(), manager, "ev-1")
	require.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, domain.KindBusy, domain.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&locker.calls))
}

func TestCoordinator_NonBusyErrorsAreNotRetried(t *testing.T) {
	store := memory.NewStore()
	locker := &flakyLocker{}
	coord := NewCoordinator(store, locker, nil, CoordinatorOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	_, err := coord.ApproveEvent(context.Background(), manager, "missing")
	require.ErrorIs(t, err, domain.ErrEventNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&locker.calls))
}

func TestCoordinator_NotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = fmt.Errorf("smtp down")

	ev := f.approvedEvent(t, 10)
	assert.Equal(t, domain.EventApproved, ev.Status)
	assert.Len(t, f.notifier.Calls(), 1)
}
