// Package consumer turns booking events into requester emails.
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/praveengys/connectify-sub000/pkg/events"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/services/notify/internal/mailer"
)

const sendTimeout = 15 * time.Second

type Consumer struct {
	bus    events.Subscriber
	mailer mailer.Service
	queue  string
	subs   []events.Subscription
}

func New(bus events.Subscriber, m mailer.Service, queue string) *Consumer {
	return &Consumer{bus: bus, mailer: m, queue: queue}
}

// Start joins the queue group on every booking subject so each event is
// handled by one notify instance.
func (c *Consumer) Start() error {
	handlers := map[string]func(*events.Message){
		events.BookingReserved: c.handleReserved,
		events.BookingApproved: c.handleResolved,
		events.BookingDenied:   c.handleResolved,
	}
	for subject, h := range handlers {
		sub, err := c.bus.QueueSubscribe(subject, c.queue, h)
		if err != nil {
			c.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}
	logger.Info("Notify consumer started", "queue", c.queue, "subjects", len(c.subs))
	return nil
}

func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("Unsubscribe failed", "error", err)
		}
	}
	c.subs = nil
}

func (c *Consumer) handleReserved(msg *events.Message) {
	var ev events.BookingReservedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Dropping malformed event", "error", err, "subject", msg.Subject)
		return
	}

	out, err := mailer.ReservationReceived(mailer.BookingDetails{
		Name:      ev.RequesterName,
		Email:     ev.RequesterEmail,
		BookingID: ev.BookingID,
		Date:      ev.SlotDate,
		StartTime: ev.SlotStartTime,
	})
	c.deliver(msg.Subject, ev.BookingID, out, err)
}

func (c *Consumer) handleResolved(msg *events.Message) {
	var ev events.BookingResolvedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Dropping malformed event", "error", err, "subject", msg.Subject)
		return
	}

	details := mailer.BookingDetails{
		Name:      ev.RequesterName,
		Email:     ev.RequesterEmail,
		BookingID: ev.BookingID,
		Date:      ev.SlotDate,
		StartTime: ev.SlotStartTime,
	}

	var (
		out mailer.Message
		err error
	)
	switch msg.Subject {
	case events.BookingApproved:
		out, err = mailer.BookingApproved(details)
	case events.BookingDenied:
		out, err = mailer.BookingDenied(details)
	default:
		logger.Warn("Unexpected subject", "subject", msg.Subject)
		return
	}
	c.deliver(msg.Subject, ev.BookingID, out, err)
}

func (c *Consumer) deliver(subject, bookingID string, out mailer.Message, renderErr error) {
	if renderErr != nil {
		logger.Error("Failed to render email", "error", renderErr, "booking_id", bookingID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := c.mailer.Send(ctx, out); err != nil {
		logger.Error("Failed to send email", "error", err, "subject", subject, "booking_id", bookingID)
		return
	}
	logger.Info("Email sent", "subject", subject, "booking_id", bookingID)
}
