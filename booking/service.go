// Package booking runs the booking lifecycle: creation by a customer, the
// provider's accept/decline/progress steps, customer cancellation and archival.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/meinhoongagan/homeservice-app/events"
	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
	"github.com/meinhoongagan/homeservice-app/utils"
)

var (
	// ErrStaleStatus means the booking moved on since the caller last read it.
	ErrStaleStatus   = errors.New("booking status has changed, refresh and try again")
	ErrNotFound      = errors.New("booking not found")
	ErrNotYours      = errors.New("booking belongs to another user")
	ErrMissingFields = errors.New("please fill all the fields")
	ErrBadDate       = errors.New("date must be YYYY-MM-DD")
)

const dateLayout = "2006-01-02"

type CreateInput struct {
	ServiceID string `json:"serviceId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Address   string `json:"address"`
}

type Service struct {
	store   store.Store
	events  events.Publisher
	mailer  utils.Mailer
	effects *effects
	now     func() time.Time
}

func NewService(s store.Store, pub events.Publisher, mailer utils.Mailer) *Service {
	return &Service{store: s, events: pub, mailer: mailer, effects: newEffects(), now: time.Now}
}

// Wait blocks until every queued event and email has been handled.
func (s *Service) Wait() {
	s.effects.pending.Wait()
}

// Close drains the queued events and emails and stops the worker.
func (s *Service) Close() {
	s.effects.close()
}

// Create books a provider service for the signed-in customer.
func (s *Service) Create(ctx context.Context, sess *session.Session, in CreateInput) (*models.Booking, error) {
	me, err := sess.RequireRole(models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ServiceID) == "" || strings.TrimSpace(in.Date) == "" ||
		strings.TrimSpace(in.Time) == "" || strings.TrimSpace(in.Address) == "" {
		return nil, ErrMissingFields
	}
	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return nil, ErrBadDate
	}

	doc, err := s.store.Find(ctx, models.CollectionProviderServices, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", in.ServiceID, err)
	}
	var svc models.ProviderService
	if err := store.Decode(*doc, &svc); err != nil {
		return nil, err
	}

	b := &models.Booking{
		CustomerID:    me.UserID,
		CustomerName:  me.Name,
		ProviderID:    svc.ProviderID,
		ProviderName:  svc.ProviderName,
		ProviderImage: svc.ProviderImage,
		ServiceID:     svc.ID,
		Service:       svc.Service,
		Task:          svc.Task,
		Date:          in.Date,
		Time:          strings.TrimSpace(in.Time),
		Address:       strings.TrimSpace(in.Address),
		Price:         svc.Price,
		Status:        models.StatusPending,
		CreatedAt:     models.Stamp(s.now()),
	}
	data, err := store.Encode(b)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Add(ctx, models.CollectionBookings, data)
	if err != nil {
		return nil, err
	}
	b.ID = id
	s.publish(events.TypeBookingCreated, b, "")
	return b, nil
}

// Get returns a booking the signed-in user takes part in.
func (s *Service) Get(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	me, err := sess.Require()
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != me.UserID && b.ProviderID != me.UserID {
		return nil, ErrNotYours
	}
	return b, nil
}

func (s *Service) Accept(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	return s.transition(ctx, sess, id, models.StatusPending, models.StatusConfirmed)
}

func (s *Service) Decline(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	return s.transition(ctx, sess, id, models.StatusPending, models.StatusDeclined)
}

func (s *Service) Start(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	return s.transition(ctx, sess, id, models.StatusConfirmed, models.StatusOnProcess)
}

func (s *Service) Complete(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	return s.transition(ctx, sess, id, models.StatusOnProcess, models.StatusCompleted)
}

// Cancel withdraws a customer's booking while the provider has not answered yet.
func (s *Service) Cancel(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	return s.transition(ctx, sess, id, models.StatusPending, models.StatusCancelled)
}

// Advance takes the provider's next step from current: Confirmed to
// On Process, On Process to Completed.
func (s *Service) Advance(ctx context.Context, sess *session.Session, id string, current models.BookingStatus) (*models.Booking, error) {
	next, err := current.Next()
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, sess, id, current, next)
}

// transition moves booking id from expected to `to`. The write only applies if
// the stored status still equals expected.
func (s *Service) transition(ctx context.Context, sess *session.Session, id string, expected, to models.BookingStatus) (*models.Booking, error) {
	me, err := sess.Require()
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owns(me, b); err != nil {
		return nil, err
	}
	if b.Status != expected {
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrStaleStatus, expected, b.Status)
	}
	patch, err := b.Apply(to, me.Role, s.now())
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, models.CollectionBookings, id, patch,
		store.Where("status", store.OpEq, string(expected)))
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: booking %s is no longer %s", ErrStaleStatus, id, expected)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s: %s -> %s by %s", id, expected, to, me.UserID)
	s.publish(events.TypeBookingTransition, b, expected)
	s.notifyCustomer(b)
	return b, nil
}

// Archive files a completed job away. The status stays Completed.
func (s *Service) Archive(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owns(me, b); err != nil {
		return nil, err
	}
	patch, err := b.Archive(s.now())
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, models.CollectionBookings, id, patch,
		store.Where("status", store.OpEq, string(models.StatusCompleted)))
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: booking %s is no longer %s", ErrStaleStatus, id, models.StatusCompleted)
	}
	if err != nil {
		return nil, err
	}
	s.publish(events.TypeBookingArchived, b, models.StatusCompleted)
	return b, nil
}

func owns(me session.Identity, b *models.Booking) error {
	switch me.Role {
	case models.RoleProvider:
		if b.ProviderID == me.UserID {
			return nil
		}
	case models.RoleCustomer:
		if b.CustomerID == me.UserID {
			return nil
		}
	}
	return ErrNotYours
}

func (s *Service) load(ctx context.Context, id string) (*models.Booking, error) {
	doc, err := s.store.Find(ctx, models.CollectionBookings, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var b models.Booking
	if err := store.Decode(*doc, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// publish is best effort and runs off the caller's path: a slow or absent
// broker never delays or fails a transition.
func (s *Service) publish(typ string, b *models.Booking, from models.BookingStatus) {
	ev := events.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		From:       from,
		To:         b.Status,
		At:         models.NewTimestamp(s.now()),
	}
	s.effects.submit(typ, func(ctx context.Context) {
		if err := s.events.Publish(ctx, ev.BookingID, ev); err != nil {
			log.Printf("failed to publish %s for booking %s: %v", typ, ev.BookingID, err)
		}
	})
}
