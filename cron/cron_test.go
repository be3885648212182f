package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	calls int
	err   error
}

func (c *countingSender) SendReminders(context.Context) (int, error) {
	c.calls++
	return 3, c.err
}

func TestStartCronJobs_RejectsBadSchedule(t *testing.T) {
	_, err := StartCronJobs("every tuesday", &countingSender{})
	assert.Error(t, err)
}

func TestStartCronJobs(t *testing.T) {
	c, err := StartCronJobs("0 18 * * *", &countingSender{})
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}

func TestSendBookingReminders(t *testing.T) {
	s := &countingSender{}
	sendBookingReminders(s)
	s.err = errors.New("store down")
	sendBookingReminders(s)
	assert.Equal(t, 2, s.calls)
}
