package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "Pending"
	StatusConfirmed BookingStatus = "Confirmed"
	StatusDeclined  BookingStatus = "Declined"
	StatusOnProcess BookingStatus = "On Process"
	StatusCompleted BookingStatus = "Completed"
	StatusCancelled BookingStatus = "Cancelled"

	// statusRejected is how some older clients spelled Declined.
	statusRejected BookingStatus = "Rejected"
)

var (
	ErrUnknownStatus     = errors.New("unknown booking status")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrTerminalStatus    = errors.New("booking is in a terminal status")
	ErrNotArchivable     = errors.New("only completed bookings can be archived")
	ErrAlreadyArchived   = errors.New("booking is already archived")
	ErrWrongActor        = errors.New("this role cannot perform the transition")
)

var allStatuses = []BookingStatus{
	StatusPending, StatusConfirmed, StatusDeclined, StatusOnProcess, StatusCompleted, StatusCancelled,
}

// ParseBookingStatus accepts the wire spelling of a status, including the legacy "Rejected".
func ParseBookingStatus(s string) (BookingStatus, error) {
	if BookingStatus(s) == statusRejected {
		return StatusDeclined, nil
	}
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s BookingStatus) String() string { return string(s) }

// UnmarshalJSON folds the legacy spelling into Declined and keeps anything else as is.
func (s *BookingStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if BookingStatus(raw) == statusRejected {
		*s = StatusDeclined
		return nil
	}
	*s = BookingStatus(raw)
	return nil
}

// Transition is one edge of the booking lifecycle. StampField names the
// write-once timestamp set when the edge is taken.
type Transition struct {
	From       BookingStatus
	To         BookingStatus
	Actor      Role
	StampField string
}

var transitions = []Transition{
	{From: StatusPending, To: StatusConfirmed, Actor: RoleProvider, StampField: "confirmedAt"},
	{From: StatusPending, To: StatusDeclined, Actor: RoleProvider, StampField: "rejectedAt"},
	{From: StatusConfirmed, To: StatusOnProcess, Actor: RoleProvider, StampField: "progressAt"},
	{From: StatusOnProcess, To: StatusCompleted, Actor: RoleProvider, StampField: "completedAt"},
	{From: StatusPending, To: StatusCancelled, Actor: RoleCustomer, StampField: "cancelledAt"},
}

// Transitions returns a copy of the lifecycle graph.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func FindTransition(from, to BookingStatus) (Transition, error) {
	if from.IsTerminal() {
		return Transition{}, fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func CanTransition(from, to BookingStatus) bool {
	_, err := FindTransition(from, to)
	return err == nil
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// Next is the provider's single "next step" on an accepted job.
func (s BookingStatus) Next() (BookingStatus, error) {
	switch s {
	case StatusConfirmed:
		return StatusOnProcess, nil
	case StatusOnProcess:
		return StatusCompleted, nil
	}
	if s.IsTerminal() {
		return "", fmt.Errorf("%w: %s", ErrTerminalStatus, s)
	}
	return "", fmt.Errorf("%w: no next step from %s", ErrInvalidTransition, s)
}

// Active reports whether the job is accepted and not yet finished.
func (s BookingStatus) Active() bool {
	return s == StatusConfirmed || s == StatusOnProcess
}

type Booking struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customerId"`
	CustomerName  string        `json:"customerName"`
	ProviderID    string        `json:"providerId"`
	ProviderName  string        `json:"providerName"`
	ProviderImage string        `json:"providerImage"`
	ServiceID     string        `json:"serviceId"`
	Service       string        `json:"service"`
	Task          string        `json:"task"`
	Date          string        `json:"date"` // YYYY-MM-DD, as picked by the customer
	Time          string        `json:"time"`
	Address       string        `json:"address"`
	Price         float64       `json:"price"`
	Status        BookingStatus `json:"status"`
	CreatedAt     *Timestamp    `json:"createdAt,omitempty"`
	ConfirmedAt   *Timestamp    `json:"confirmedAt,omitempty"`
	RejectedAt    *Timestamp    `json:"rejectedAt,omitempty"`
	ProgressAt    *Timestamp    `json:"progressAt,omitempty"`
	CompletedAt   *Timestamp    `json:"completedAt,omitempty"`
	CancelledAt   *Timestamp    `json:"cancelledAt,omitempty"`
	CompletedTime *Timestamp    `json:"completedTime,omitempty"`
}

// stamp returns the address of the timestamp field named by a transition.
func (b *Booking) stamp(field string) **Timestamp {
	switch field {
	case "confirmedAt":
		return &b.ConfirmedAt
	case "rejectedAt":
		return &b.RejectedAt
	case "progressAt":
		return &b.ProgressAt
	case "completedAt":
		return &b.CompletedAt
	case "cancelledAt":
		return &b.CancelledAt
	}
	return nil
}

// Apply moves b to status `to` on behalf of actor and returns the patch that
// persists the change. b is left untouched when the move is not allowed.
func (b *Booking) Apply(to BookingStatus, actor Role, now time.Time) (map[string]interface{}, error) {
	from, err := ParseBookingStatus(string(b.Status))
	if err != nil {
		return nil, err
	}
	t, err := FindTransition(from, to)
	if err != nil {
		return nil, err
	}
	if t.Actor != actor {
		return nil, fmt.Errorf("%w: %s cannot move a booking to %s", ErrWrongActor, actor, to)
	}
	field := b.stamp(t.StampField)
	if *field != nil {
		return nil, fmt.Errorf("%w: %s already set", ErrInvalidTransition, t.StampField)
	}
	ts := NewTimestamp(now)
	b.Status = to
	*field = &ts
	return map[string]interface{}{
		"status":     string(to),
		t.StampField: ts.String(),
	}, nil
}

// Archive marks a completed booking as filed away. The status stays Completed.
func (b *Booking) Archive(now time.Time) (map[string]interface{}, error) {
	if b.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotArchivable, b.Status)
	}
	if b.CompletedTime != nil {
		return nil, ErrAlreadyArchived
	}
	ts := NewTimestamp(now)
	b.CompletedTime = &ts
	return map[string]interface{}{"completedTime": ts.String()}, nil
}

// Upcoming reports whether the booking still belongs on the customer's
// upcoming list rather than in history.
func (b *Booking) Upcoming() bool {
	return b.Status == StatusPending || b.Status.Active()
}
