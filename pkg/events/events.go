package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/praveengys/connectify-sub000/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) (Subscription, error)
	QueueSubscribe(subject, queue string, handler func(msg *Message)) (Subscription, error)
	Close() error
}

// Subscription is satisfied by *nats.Subscription.
type Subscription interface {
	Unsubscribe() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the JSON payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Subject, err)
	}
	return nil
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) (Subscription, error) {
	sub, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(fromNATS(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) (Subscription, error) {
	sub, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(fromNATS(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	return sub, nil
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

func fromNATS(msg *nats.Msg) *Message {
	now := time.Now()
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: now,
		ID:        fmt.Sprintf("%d", now.UnixNano()),
	}
}

// Event subjects
const (
	SlotsCreated = "slots.created"

	BookingReserved = "booking.reserved"
	BookingApproved = "booking.approved"
	BookingDenied   = "booking.denied"

	// availabilityPrefix is suffixed with the calendar date (YYYY-MM-DD).
	availabilityPrefix = "slots.availability."
)

// AvailabilitySubject is the subject carrying change signals for one date.
func AvailabilitySubject(date string) string {
	return availabilityPrefix + date
}

// Event payloads
type SlotsCreatedEvent struct {
	Date      string    `json:"date"`
	SlotIDs   []string  `json:"slot_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type AvailabilityChangedEvent struct {
	Date   string `json:"date"`
	SlotID string `json:"slot_id,omitempty"`
	Reason string `json:"reason"`
}

type BookingReservedEvent struct {
	BookingID      string    `json:"booking_id"`
	SlotID         string    `json:"slot_id"`
	SlotDate       string    `json:"slot_date"`
	SlotStartTime  string    `json:"slot_start_time"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookingResolvedEvent is published on both BookingApproved and BookingDenied.
type BookingResolvedEvent struct {
	BookingID      string    `json:"booking_id"`
	SlotID         string    `json:"slot_id"`
	SlotDate       string    `json:"slot_date,omitempty"`
	SlotStartTime  string    `json:"slot_start_time,omitempty"`
	Status         string    `json:"status"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	ResolvedAt     time.Time `json:"resolved_at"`
}
