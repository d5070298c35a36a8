package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/praveengys/connectify-sub000/pkg/config"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
)

type ReservationService interface {
	ReserveSlot(ctx context.Context, slotID string, req domain.Requester) (*domain.Booking, error)
}

type reservationService struct {
	reservations repository.ReservationRepository
	notifier     Notifier
	config       *config.Config
}

func NewReservationService(
	reservations repository.ReservationRepository,
	notifier Notifier,
	config *config.Config,
) ReservationService {
	return &reservationService{
		reservations: reservations,
		notifier:     notifier,
		config:       config,
	}
}

func (s *reservationService) ReserveSlot(ctx context.Context, slotID string, req domain.Requester) (*domain.Booking, error) {
	if _, err := uuid.Parse(slotID); err != nil {
		return nil, fmt.Errorf("%w: slot id %q", domain.ErrValidation, slotID)
	}
	req.Normalize()
	if err := req.Validate(s.config.Reservation.NotesMaxLength); err != nil {
		return nil, err
	}

	attempts := s.config.Reservation.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		booking, err := s.reservations.ClaimSlot(ctx, &domain.Booking{
			ID:             uuid.NewString(),
			SlotID:         slotID,
			RequesterName:  req.Name,
			RequesterEmail: req.Email,
			Notes:          req.Notes,
			Status:         domain.BookingPending,
			UserID:         req.UserID,
		})
		if err == nil {
			logger.InfoContext(ctx, "Slot reserved", "slot_id", slotID, "booking_id", booking.ID, "attempt", attempt)
			s.notifier.BookingReserved(ctx, *booking)
			return booking, nil
		}
		if !errors.Is(err, domain.ErrWriteConflict) {
			return nil, err
		}

		logger.DebugContext(ctx, "Reservation write conflict", "slot_id", slotID, "attempt", attempt)
		if attempt < attempts {
			if err := s.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	logger.WarnContext(ctx, "Reservation retries exhausted", "slot_id", slotID, "attempts", attempts)
	return nil, fmt.Errorf("%w: slot %s after %d attempts", domain.ErrTransientConflict, slotID, attempts)
}

// pause waits RetryPause plus up to the same again of jitter.
func (s *reservationService) pause(ctx context.Context) error {
	base := s.config.Reservation.RetryPause
	if base <= 0 {
		return ctx.Err()
	}
	d := base + time.Duration(rand.Int63n(int64(base)))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
