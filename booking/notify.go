package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/store"
	"github.com/meinhoongagan/homeservice-app/utils"
)

func (s *Service) customerEmail(ctx context.Context, customerID string) (string, error) {
	doc, err := s.store.Find(ctx, models.CollectionUsers, customerID)
	if err != nil {
		return "", err
	}
	var u models.User
	if err := store.Decode(*doc, &u); err != nil {
		return "", err
	}
	return u.Email, nil
}

// notifyCustomer queues an email to the customer when the provider answers a
// request. Failures are logged only.
func (s *Service) notifyCustomer(b *models.Booking) {
	var subject, verdict string
	switch b.Status {
	case models.StatusConfirmed:
		subject, verdict = "Your booking is confirmed", "accepted"
	case models.StatusDeclined:
		subject, verdict = "Your booking was declined", "declined"
	default:
		return
	}
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>%s has %s your booking.</p>
		<ul>
			<li><strong>Service:</strong> %s - %s</li>
			<li><strong>Date:</strong> %s %s</li>
			<li><strong>Address:</strong> %s</li>
			<li><strong>Price:</strong> %.2f</li>
		</ul>
	`, b.CustomerName, b.ProviderName, verdict, b.Service, b.Task, b.Date, b.Time, b.Address, b.Price)
	bookingID, customerID := b.ID, b.CustomerID
	s.effects.submit("email "+bookingID, func(ctx context.Context) {
		to, err := s.customerEmail(ctx, customerID)
		if err != nil || to == "" {
			log.Printf("no email for customer %s of booking %s: %v", customerID, bookingID, err)
			return
		}
		if err := s.mailer.SendEmail(to, subject, body); err != nil {
			log.Printf("failed to email customer of booking %s: %v", bookingID, err)
		}
	})
}

// SendReminders emails the customer of every confirmed booking dated the day
// after now on the IST calendar. It returns how many reminders went out.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	tomorrow := utils.TomorrowIST(s.now(), dateLayout)
	docs, err := s.store.Get(ctx, store.Q(models.CollectionBookings,
		store.Where("status", store.OpEq, string(models.StatusConfirmed)),
		store.Where("date", store.OpEq, tomorrow),
	))
	if err != nil {
		return 0, fmt.Errorf("fetch bookings for reminders: %w", err)
	}
	bookings, err := store.DecodeAll[models.Booking](docs)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range bookings {
		to, err := s.customerEmail(ctx, b.CustomerID)
		if err != nil || to == "" {
			log.Printf("no email for customer %s of booking %s: %v", b.CustomerID, b.ID, err)
			continue
		}
		subject := fmt.Sprintf("Reminder: %s tomorrow at %s", b.Task, b.Time)
		body := fmt.Sprintf(`
			<p>Dear %s,</p>
			<p>This is a reminder for your booking scheduled tomorrow.</p>
			<ul>
				<li><strong>Service:</strong> %s - %s</li>
				<li><strong>Provider:</strong> %s</li>
				<li><strong>Date:</strong> %s %s</li>
				<li><strong>Address:</strong> %s</li>
			</ul>
		`, b.CustomerName, b.Service, b.Task, b.ProviderName, b.Date, b.Time, b.Address)
		if err := s.mailer.SendEmail(to, subject, body); err != nil {
			log.Printf("Failed to send reminder for booking %s: %v", b.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// inMonth reports whether ts falls in the calendar month of now.
func inMonth(ts *models.Timestamp, now time.Time) bool {
	if ts == nil {
		return false
	}
	y, m, _ := ts.Time.Date()
	ny, nm, _ := now.UTC().Date()
	return y == ny && m == nm
}
