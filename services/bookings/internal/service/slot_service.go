package service

import (
	"context"
	"fmt"

	"github.com/praveengys/connectify-sub000/pkg/config"
	"github.com/praveengys/connectify-sub000/pkg/events"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
)

type SlotService interface {
	CreateSlots(ctx context.Context, date domain.Date, times []domain.TimeOfDay) ([]domain.Slot, error)
	ListAvailableSlots(ctx context.Context, date domain.Date) ([]domain.Slot, error)
	// SubscribeToAvailableSlots calls onChange with the current available slots
	// for date, then again after every change, until ctx is done.
	SubscribeToAvailableSlots(ctx context.Context, date domain.Date, onChange func([]domain.Slot)) error
}

type slotService struct {
	slots    repository.SlotRepository
	bus      events.Subscriber
	notifier Notifier
	config   *config.Config
}

func NewSlotService(
	slots repository.SlotRepository,
	bus events.Subscriber,
	notifier Notifier,
	config *config.Config,
) SlotService {
	return &slotService{
		slots:    slots,
		bus:      bus,
		notifier: notifier,
		config:   config,
	}
}

func (s *slotService) CreateSlots(ctx context.Context, date domain.Date, times []domain.TimeOfDay) ([]domain.Slot, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	times, err := domain.NormalizeTimes(times)
	if err != nil {
		return nil, err
	}

	created, err := s.slots.CreateMissing(ctx, date, times, s.config.Reservation.SlotDurationMin)
	if err != nil {
		return nil, fmt.Errorf("failed to create slots: %w", err)
	}

	logger.InfoContext(ctx, "Slots created", "date", date.String(), "requested", len(times), "created", len(created))
	if len(created) > 0 {
		s.notifier.SlotsCreated(ctx, date, created)
	}
	return created, nil
}

func (s *slotService) ListAvailableSlots(ctx context.Context, date domain.Date) ([]domain.Slot, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	slots, err := s.slots.ListAvailable(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (s *slotService) SubscribeToAvailableSlots(ctx context.Context, date domain.Date, onChange func([]domain.Slot)) error {
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", domain.ErrValidation)
	}

	refresh := func() {
		if ctx.Err() != nil {
			return
		}
		slots, err := s.slots.ListAvailable(ctx, date)
		if err != nil {
			logger.WarnContext(ctx, "Availability refresh failed", "error", err, "date", date.String())
			return
		}
		onChange(slots)
	}

	sub, err := s.bus.Subscribe(events.AvailabilitySubject(date.String()), func(*events.Message) {
		refresh()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to availability: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("Availability unsubscribe failed", "error", err, "date", date.String())
		}
	}()

	refresh()
	return nil
}
