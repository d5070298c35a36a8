// Package memory is an in-process store with the same atomicity contract as the
// Postgres repositories. Reservations use optimistic compare-and-swap on the
// slot version.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
)

type Store struct {
	mu         sync.RWMutex
	slots      map[string]*domain.Slot
	slotKeys   map[slotKey]string
	bookings   map[string]*domain.Booking
	bySlot     map[string]string
	now        func() time.Time
	beforeSwap func() // test hook between snapshot and commit
}

type slotKey struct {
	date domain.Date
	time domain.TimeOfDay
}

func New() *Store {
	return &Store{
		slots:    make(map[string]*domain.Slot),
		slotKeys: make(map[slotKey]string),
		bookings: make(map[string]*domain.Booking),
		bySlot:   make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repository.Store {
	return repository.Store{Slots: slotView{s}, Reservations: s, Bookings: bookingView{s}}
}

type slotView struct{ *Store }

func (v slotView) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	return v.GetSlot(ctx, id)
}

type bookingView struct{ *Store }

func (v bookingView) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return v.GetBooking(ctx, id)
}

func (s *Store) CreateMissing(ctx context.Context, date domain.Date, times []domain.TimeOfDay, durationMinutes int) ([]domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := make([]domain.Slot, 0, len(times))
	for _, t := range times {
		key := slotKey{date: date, time: t}
		if _, exists := s.slotKeys[key]; exists {
			continue
		}
		slot := &domain.Slot{
			ID:              uuid.NewString(),
			Date:            date,
			StartTime:       t,
			DurationMinutes: durationMinutes,
			CreatedAt:       now,
		}
		s.slots[slot.ID] = slot
		s.slotKeys[key] = slot.ID
		created = append(created, *slot)
	}
	domain.SortSlots(created)
	return created, nil
}

func (s *Store) ListAvailable(ctx context.Context, date domain.Date) ([]domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Slot{}
	for _, slot := range s.slots {
		if slot.Date == date && !slot.IsBooked {
			out = append(out, *slot)
		}
	}
	domain.SortSlots(out)
	return out, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (*domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

// ClaimSlot reads the slot version, then commits only if no other writer
// bumped it in between.
func (s *Store) ClaimSlot(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	slot, ok := s.slots[b.SlotID]
	var (
		booked  bool
		version int64
	)
	if ok {
		booked, version = slot.IsBooked, slot.Version
	}
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	if booked {
		return nil, domain.ErrSlotUnavailable
	}

	if s.beforeSwap != nil {
		s.beforeSwap()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slot.Version != version {
		return nil, domain.ErrWriteConflict
	}
	if _, taken := s.bySlot[slot.ID]; taken {
		return nil, domain.ErrSlotUnavailable
	}

	now := s.now()
	created := *b
	created.Status = domain.BookingPending
	created.CreatedAt = now
	created.UpdatedAt = now

	slot.IsBooked = true
	slot.Version++
	s.bookings[created.ID] = &created
	s.bySlot[slot.ID] = created.ID

	out := created
	return &out, nil
}

func (s *Store) getBooking(id string) (*domain.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBooking(id)
}

func (s *Store) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		all = append(all, *b)
	}
	s.mu.RUnlock()

	domain.SortBookings(all)

	offset := max(filter.Offset, 0)
	if offset >= len(all) {
		return []domain.Booking{}, nil
	}
	end := len(all)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return all[offset:end], nil
}

func (s *Store) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status != from {
		return nil, domain.ErrInvalidStateTransition
	}
	b.Status = to
	b.UpdatedAt = s.now()
	cp := *b
	return &cp, nil
}
