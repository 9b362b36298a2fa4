package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventflow/internal/domain"

	"golang.org/x/sync/semaphore"
)

type localEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// Local is an in-process domain.Locker. Each key is a weight-1 semaphore that is
// dropped from the table once no caller holds or waits on it.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

// NewLocal returns a Local locker whose Lock gives up with domain.ErrBusy after wait.
func NewLocal(wait time.Duration) *Local {
	return &Local{
		entries: make(map[string]*localEntry),
		wait:    wait,
	}
}

var _ domain.Locker = (*Local)(nil)

func (l *Local) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Lock acquires all keys within the configured wait.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	heldEntries := make([]*localEntry, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			heldEntries[i].sem.Release(1)
			l.unref(held[i], heldEntries[i])
		}
	}

	for _, key := range keys {
		e := l.ref(key)
		if err := e.sem.Acquire(waitCtx, 1); err != nil {
			l.unref(key, e)
			release()
			return nil, acquireError(ctx, key)
		}
		held = append(held, key)
		heldEntries = append(heldEntries, e)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// acquireError tells a caller deadline apart from the locker's own bounded wait.
func acquireError(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: waiting for %s: %v", domain.ErrTimeout, key, ctx.Err())
	}
	return fmt.Errorf("%w: %s is held by another operation", domain.ErrBusy, key)
}
