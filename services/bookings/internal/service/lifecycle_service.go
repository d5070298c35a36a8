package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
)

type LifecycleService interface {
	ApproveBooking(ctx context.Context, id string) (*domain.Booking, error)
	DenyBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type lifecycleService struct {
	bookings repository.BookingRepository
	notifier Notifier
}

func NewLifecycleService(bookings repository.BookingRepository, notifier Notifier) LifecycleService {
	return &lifecycleService{bookings: bookings, notifier: notifier}
}

func (s *lifecycleService) ApproveBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingScheduled)
}

func (s *lifecycleService) DenyBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingDenied)
}

func (s *lifecycleService) transition(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: booking id %q", domain.ErrValidation, id)
	}

	b, err := s.bookings.TransitionStatus(ctx, id, domain.BookingPending, to)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Booking resolved", "booking_id", b.ID, "status", b.Status)

	go s.notifier.BookingResolved(context.WithoutCancel(ctx), *b)
	return b, nil
}

func (s *lifecycleService) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	bookings, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *lifecycleService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: booking id %q", domain.ErrValidation, id)
	}
	return s.bookings.GetByID(ctx, id)
}
