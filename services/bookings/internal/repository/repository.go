package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
)

type SlotRepository interface {
	// CreateMissing inserts a slot for every time not already present on date,
	// as one atomic unit, and returns only the new rows.
	CreateMissing(ctx context.Context, date domain.Date, times []domain.TimeOfDay, durationMinutes int) ([]domain.Slot, error)
	ListAvailable(ctx context.Context, date domain.Date) ([]domain.Slot, error)
	GetByID(ctx context.Context, id string) (*domain.Slot, error)
}

type ReservationRepository interface {
	// ClaimSlot marks the slot booked and inserts b in one atomic unit.
	// It returns domain.ErrSlotUnavailable when the slot was already claimed and
	// domain.ErrWriteConflict when a concurrent unit forced an abort.
	ClaimSlot(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	// TransitionStatus moves a booking from one status to another only if it is
	// still in from.
	TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Slots        SlotRepository
	Reservations ReservationRepository
	Bookings     BookingRepository
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateInvalidText          = "22P02"

	bookingsSlotIDKey = "bookings_slot_id_key"
)

// mapPgError translates Postgres failures the service layer reacts to.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return errors.Join(domain.ErrWriteConflict, err)
	case sqlStateUniqueViolation:
		if pgErr.ConstraintName == bookingsSlotIDKey {
			return errors.Join(domain.ErrSlotUnavailable, err)
		}
	case sqlStateInvalidText:
		return errors.Join(domain.ErrValidation, err)
	}
	return err
}

// clampPage normalises paging input. A zero limit means no limit.
func clampPage(limit, offset int) (int, int) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
