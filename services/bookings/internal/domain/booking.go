package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingScheduled BookingStatus = "scheduled"
	BookingDenied    BookingStatus = "denied"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingScheduled, BookingDenied:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingScheduled || s == BookingDenied
}

// CanTransitionTo reports whether next is reachable in one step. Only pending
// has outgoing edges.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return s == BookingPending && next.IsTerminal()
}

// Rank orders statuses for admin listings: pending, scheduled, denied.
func (s BookingStatus) Rank() int {
	switch s {
	case BookingPending:
		return 0
	case BookingScheduled:
		return 1
	default:
		return 2
	}
}

type Booking struct {
	ID             string        `json:"id"`
	SlotID         string        `json:"slot_id"`
	RequesterName  string        `json:"requester_name"`
	RequesterEmail string        `json:"requester_email"`
	Notes          string        `json:"notes,omitempty"`
	Status         BookingStatus `json:"status"`
	UserID         *string       `json:"user_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Requester is the caller-supplied part of a reservation.
type Requester struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Notes  string  `json:"notes"`
	UserID *string `json:"-"`
}

func (r *Requester) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *Requester) Validate(maxNotes int) error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}
	if !IsValidEmail(r.Email) {
		return fmt.Errorf("%w: email %q is not valid", ErrValidation, r.Email)
	}
	if maxNotes > 0 && utf8.RuneCountInString(r.Notes) > maxNotes {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, maxNotes)
	}
	return nil
}

const MaxNameLength = 120

// IsValidEmail performs basic email validation
func IsValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".") &&
		!strings.ContainsAny(email, " \t\r\n")
}

type BookingFilter struct {
	Status *BookingStatus
	Limit  int
	Offset int
}

// SortBookings orders by status rank, newest first within a status.
func SortBookings(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		ri, rj := bookings[i].Status.Rank(), bookings[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}
