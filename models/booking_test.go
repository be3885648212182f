package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

func TestParseBookingStatus_RoundTrip(t *testing.T) {
	for _, st := range allStatuses {
		parsed, err := ParseBookingStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}

	parsed, err := ParseBookingStatus("Rejected")
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, parsed)

	_, err = ParseBookingStatus("pending")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestBookingStatus_JSON(t *testing.T) {
	for _, st := range allStatuses {
		b, err := json.Marshal(st)
		require.NoError(t, err)
		var back BookingStatus
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, st, back)
	}

	var legacy BookingStatus
	require.NoError(t, json.Unmarshal([]byte(`"Rejected"`), &legacy))
	assert.Equal(t, StatusDeclined, legacy)
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, from := range []BookingStatus{StatusCompleted, StatusDeclined, StatusCancelled} {
		assert.True(t, from.IsTerminal())
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
		_, err := from.Next()
		assert.ErrorIs(t, err, ErrTerminalStatus)
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusDeclined, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusOnProcess, true},
		{StatusOnProcess, StatusCompleted, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCancelled, false},
		{StatusOnProcess, StatusConfirmed, false},
		{StatusConfirmed, StatusConfirmed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNext(t *testing.T) {
	next, err := StatusConfirmed.Next()
	require.NoError(t, err)
	assert.Equal(t, StatusOnProcess, next)

	next, err = StatusOnProcess.Next()
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, next)

	_, err = StatusPending.Next()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBookingApply_ConfirmedToOnProcess(t *testing.T) {
	b := &Booking{ID: "b1", Status: StatusConfirmed, ConfirmedAt: Stamp(now.Add(-time.Hour))}

	patch, err := b.Apply(StatusOnProcess, RoleProvider, now)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"status":     "On Process",
		"progressAt": "2024-03-05T10:30:00.000000000Z",
	}, patch)
	assert.Equal(t, StatusOnProcess, b.Status)
	require.NotNil(t, b.ProgressAt)
	assert.Nil(t, b.CompletedAt)
}

func TestBookingApply_Rejections(t *testing.T) {
	b := &Booking{Status: StatusPending}
	_, err := b.Apply(StatusConfirmed, RoleCustomer, now)
	assert.ErrorIs(t, err, ErrWrongActor)
	assert.Equal(t, StatusPending, b.Status)

	_, err = b.Apply(StatusCancelled, RoleProvider, now)
	assert.ErrorIs(t, err, ErrWrongActor)

	done := &Booking{Status: StatusCompleted, CompletedAt: Stamp(now)}
	_, err = done.Apply(StatusOnProcess, RoleProvider, now)
	assert.ErrorIs(t, err, ErrTerminalStatus)

	// a stamp that is already present is never overwritten
	odd := &Booking{Status: StatusConfirmed, ProgressAt: Stamp(now.Add(-time.Minute))}
	_, err = odd.Apply(StatusOnProcess, RoleProvider, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, odd.Status)

	legacy := &Booking{Status: "Rejected"}
	_, err = legacy.Apply(StatusConfirmed, RoleProvider, now)
	assert.ErrorIs(t, err, ErrTerminalStatus)
}

func TestBookingArchive(t *testing.T) {
	b := &Booking{Status: StatusCompleted}
	patch, err := b.Archive(now)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"completedTime": "2024-03-05T10:30:00.000000000Z"}, patch)
	assert.Equal(t, StatusCompleted, b.Status)

	_, err = b.Archive(now)
	assert.ErrorIs(t, err, ErrAlreadyArchived)

	_, err = (&Booking{Status: StatusOnProcess}).Archive(now)
	assert.ErrorIs(t, err, ErrNotArchivable)
}

func TestBookingUpcoming(t *testing.T) {
	assert.True(t, (&Booking{Status: StatusPending}).Upcoming())
	assert.True(t, (&Booking{Status: StatusOnProcess}).Upcoming())
	assert.False(t, (&Booking{Status: StatusCompleted}).Upcoming())
	assert.False(t, (&Booking{Status: StatusDeclined}).Upcoming())
}
