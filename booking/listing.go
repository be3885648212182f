package booking

import (
	"context"

	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
)

// Entry is a booking as shown in a list, with the other party's current image.
type Entry struct {
	models.Booking
	CounterpartImage string `json:"counterpartImage"`
}

type Listing struct {
	Upcoming []Entry `json:"upcoming"`
	History  []Entry `json:"history"`
}

type Dashboard struct {
	ActiveJobs      int     `json:"activeJobs"`
	CompletedJobs   int     `json:"completedJobs"`
	MonthlyEarnings float64 `json:"monthlyEarnings"`
	PendingRequests []Entry `json:"pendingRequests"`
}

// ListForProvider returns every booking addressed to the signed-in provider,
// newest first. Finished jobs go to history.
func (s *Service) ListForProvider(ctx context.Context, sess *session.Session) (*Listing, error) {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return nil, err
	}
	entries, err := s.list(ctx, true, store.Where("providerId", store.OpEq, me.UserID))
	if err != nil {
		return nil, err
	}
	out := &Listing{Upcoming: []Entry{}, History: []Entry{}}
	for _, e := range entries {
		if e.Status.IsTerminal() {
			out.History = append(out.History, e)
		} else {
			out.Upcoming = append(out.Upcoming, e)
		}
	}
	return out, nil
}

// ListForCustomer returns the signed-in customer's bookings except cancelled
// ones, newest first. Completed jobs go to history; declined requests stay
// visible among the upcoming ones.
func (s *Service) ListForCustomer(ctx context.Context, sess *session.Session) (*Listing, error) {
	me, err := sess.RequireRole(models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	entries, err := s.list(ctx, false,
		store.Where("customerId", store.OpEq, me.UserID),
		store.Where("status", store.OpNeq, string(models.StatusCancelled)),
	)
	if err != nil {
		return nil, err
	}
	out := &Listing{Upcoming: []Entry{}, History: []Entry{}}
	for _, e := range entries {
		if e.Status == models.StatusCompleted {
			out.History = append(out.History, e)
		} else {
			out.Upcoming = append(out.Upcoming, e)
		}
	}
	return out, nil
}

// Dashboard summarizes the signed-in provider's jobs. Earnings count every
// booking created this month that was not declined or cancelled.
func (s *Service) Dashboard(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return nil, err
	}
	entries, err := s.list(ctx, true, store.Where("providerId", store.OpEq, me.UserID))
	if err != nil {
		return nil, err
	}
	now := s.now()
	d := &Dashboard{PendingRequests: []Entry{}}
	for _, e := range entries {
		switch e.Status {
		case models.StatusDeclined, models.StatusCancelled:
			continue
		case models.StatusCompleted:
			d.CompletedJobs++
		case models.StatusPending:
			d.PendingRequests = append(d.PendingRequests, e)
		default:
			d.ActiveJobs++
		}
		if inMonth(e.CreatedAt, now) {
			d.MonthlyEarnings += e.Price
		}
	}
	return d, nil
}

// list runs the booking query and resolves counterpart images with a single
// lookup on the users collection. On the provider side the counterpart is the
// customer, and the other way round.
func (s *Service) list(ctx context.Context, providerSide bool, filters ...store.Filter) ([]Entry, error) {
	docs, err := s.store.Get(ctx, store.Q(models.CollectionBookings, filters...).Order("createdAt", true))
	if err != nil {
		return nil, err
	}
	bookings, err := store.DecodeAll[models.Booking](docs)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}

	counterpart := func(b models.Booking) string {
		if providerSide {
			return b.CustomerID
		}
		return b.ProviderID
	}

	seen := make(map[string]bool)
	var ids []string
	for _, b := range bookings {
		if id := counterpart(b); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	images, err := s.images(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, len(bookings))
	for i, b := range bookings {
		out[i] = Entry{Booking: b, CounterpartImage: images[counterpart(b)]}
	}
	return out, nil
}

func (s *Service) images(ctx context.Context, userIDs []string) (map[string]string, error) {
	images := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return images, nil
	}
	docs, err := s.store.Get(ctx, store.Q(models.CollectionUsers, store.Where(store.DocumentID, store.OpIn, userIDs)))
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if img, ok := d.Data["image"].(string); ok {
			images[d.ID] = img
		}
	}
	return images, nil
}
