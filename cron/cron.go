package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ReminderSender is implemented by booking.Service.
type ReminderSender interface {
	SendReminders(ctx context.Context) (int, error)
}

// StartCronJobs schedules the booking reminder job and starts the scheduler.
// Stop the returned scheduler on shutdown.
func StartCronJobs(schedule string, reminders ReminderSender) (*cron.Cron, error) {
	fmt.Println("Starting cron job scheduler...")
	c := cron.New()
	_, err := c.AddFunc(schedule, func() { sendBookingReminders(reminders) })
	if err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	c.Start()
	log.Printf("Cron job scheduler started for booking reminders (%s)", schedule)
	return c, nil
}

func sendBookingReminders(reminders ReminderSender) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := reminders.SendReminders(ctx)
	if err != nil {
		log.Printf("Error sending booking reminders: %v", err)
		return
	}
	log.Printf("Sent %d booking reminders", n)
}
