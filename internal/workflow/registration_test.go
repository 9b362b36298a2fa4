package workflow

import (
	"errors"
	"testing"
	"time"

	"eventflow/internal/domain"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func approvedEvent() *domain.Event {
	return &domain.Event{
		ID:        "ev-1",
		Status:    domain.EventApproved,
		Capacity:  10,
		StartTime: now.Add(24 * time.Hour),
		EndTime:   now.Add(26 * time.Hour),
	}
}

func TestHasCapacity(t *testing.T) {
	require.True(t, HasCapacity(0, 1000), "capacity 0 is unlimited")
	require.True(t, HasCapacity(2, 1))
	require.False(t, HasCapacity(2, 2))
	require.False(t, HasCapacity(1, 5))
}

func TestCheckRegister(t *testing.T) {
	tests := []struct {
		name     string
		event    func() *domain.Event
		existing *domain.EventRegistration
		wantErr  error
	}{
		{
			name:  "approved future event",
			event: approvedEvent,
		},
		{
			name:    "missing event",
			event:   func() *domain.Event { return nil },
			wantErr: domain.ErrEventNotFound,
		},
		{
			name: "pending event",
			event: func() *domain.Event {
				ev := approvedEvent()
				ev.Status = domain.EventPending
				return ev
			},
			wantErr: domain.ErrEventNotApproved,
		},
		{
			name: "rejected event even with free seats",
			event: func() *domain.Event {
				ev := approvedEvent()
				ev.Status = domain.EventRejected
				ev.Capacity = 0
				return ev
			},
			wantErr: domain.ErrEventNotApproved,
		},
		{
			name: "event starting right now",
			event: func() *domain.Event {
				ev := approvedEvent()
				ev.StartTime = now
				return ev
			},
			wantErr: domain.ErrEventAlreadyStarted,
		},
		{
			name:     "already registered",
			event:    approvedEvent,
			existing: &domain.EventRegistration{ID: "r1", EventID: "ev-1", UserID: "u1"},
			wantErr:  domain.ErrAlreadyRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRegister(tt.event(), tt.existing, now)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCheckCancel(t *testing.T) {
	require.ErrorIs(t, CheckCancel(nil), domain.ErrNotRegistered)
	require.NoError(t, CheckCancel(&domain.EventRegistration{ID: "r1"}))
}

func TestCheckCheckIn(t *testing.T) {
	require.ErrorIs(t, CheckCheckIn(nil), domain.ErrNotRegistered)
	require.NoError(t, CheckCheckIn(&domain.EventRegistration{ID: "r1"}))
	require.ErrorIs(t, CheckCheckIn(&domain.EventRegistration{ID: "r1", Attended: true}), domain.ErrInvalidTransition)
}
