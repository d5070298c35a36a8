package service

import (
	"context"
	"time"

	"github.com/praveengys/connectify-sub000/pkg/events"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
)

// Notifier publishes booking and availability events. Every method is best
// effort: failures are logged and never returned to the caller.
type Notifier interface {
	SlotsCreated(ctx context.Context, date domain.Date, slots []domain.Slot)
	BookingReserved(ctx context.Context, b domain.Booking)
	BookingResolved(ctx context.Context, b domain.Booking)
}

type eventNotifier struct {
	bus   events.Publisher
	slots repository.SlotRepository
}

func NewNotifier(bus events.Publisher, slots repository.SlotRepository) Notifier {
	return &eventNotifier{bus: bus, slots: slots}
}

func (n *eventNotifier) SlotsCreated(ctx context.Context, date domain.Date, slots []domain.Slot) {
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	n.publish(ctx, events.SlotsCreated, events.SlotsCreatedEvent{
		Date:      date.String(),
		SlotIDs:   ids,
		CreatedAt: time.Now(),
	})
	n.publish(ctx, events.AvailabilitySubject(date.String()), events.AvailabilityChangedEvent{
		Date:   date.String(),
		Reason: "created",
	})
}

func (n *eventNotifier) BookingReserved(ctx context.Context, b domain.Booking) {
	slot, err := n.slots.GetByID(ctx, b.SlotID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load slot for reservation event", "error", err, "slot_id", b.SlotID)
		return
	}

	n.publish(ctx, events.BookingReserved, events.BookingReservedEvent{
		BookingID:      b.ID,
		SlotID:         b.SlotID,
		SlotDate:       slot.Date.String(),
		SlotStartTime:  slot.StartTime.String(),
		RequesterName:  b.RequesterName,
		RequesterEmail: b.RequesterEmail,
		CreatedAt:      b.CreatedAt,
	})
	n.publish(ctx, events.AvailabilitySubject(slot.Date.String()), events.AvailabilityChangedEvent{
		Date:   slot.Date.String(),
		SlotID: slot.ID,
		Reason: "reserved",
	})
}

func (n *eventNotifier) BookingResolved(ctx context.Context, b domain.Booking) {
	subject := events.BookingApproved
	if b.Status == domain.BookingDenied {
		subject = events.BookingDenied
	}

	event := events.BookingResolvedEvent{
		BookingID:      b.ID,
		SlotID:         b.SlotID,
		Status:         string(b.Status),
		RequesterName:  b.RequesterName,
		RequesterEmail: b.RequesterEmail,
		ResolvedAt:     b.UpdatedAt,
	}
	if slot, err := n.slots.GetByID(ctx, b.SlotID); err == nil {
		event.SlotDate = slot.Date.String()
		event.SlotStartTime = slot.StartTime.String()
	} else {
		logger.WarnContext(ctx, "Resolved booking without slot details", "error", err, "booking_id", b.ID)
	}

	n.publish(ctx, subject, event)
}

func (n *eventNotifier) publish(ctx context.Context, subject string, data interface{}) {
	if err := n.bus.Publish(ctx, subject, data); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}
