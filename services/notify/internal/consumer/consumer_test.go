package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveengys/connectify-sub000/pkg/events"
	"github.com/praveengys/connectify-sub000/services/notify/internal/mailer"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func TestConsumerSendsEmails(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	m := &recordingMailer{}

	c := New(bus, m, "notify")
	require.NoError(t, c.Start())
	defer c.Stop()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, events.BookingReserved, events.BookingReservedEvent{
		BookingID: "b-1", RequesterName: "Jane", RequesterEmail: "jane@x.com", SlotDate: "2024-06-01", SlotStartTime: "09:00",
	}))
	require.NoError(t, bus.Publish(ctx, events.BookingApproved, events.BookingResolvedEvent{
		BookingID: "b-1", Status: "scheduled", RequesterName: "Jane", RequesterEmail: "jane@x.com", SlotDate: "2024-06-01", SlotStartTime: "09:00",
	}))
	require.NoError(t, bus.Publish(ctx, events.BookingDenied, events.BookingResolvedEvent{
		BookingID: "b-2", Status: "denied", RequesterName: "Bob", RequesterEmail: "bob@x.com",
	}))

	require.Len(t, m.sent, 3)
	assert.Equal(t, "We received your demo request", m.sent[0].Subject)
	assert.Equal(t, "Your demo is scheduled", m.sent[1].Subject)
	assert.Contains(t, m.sent[1].Text, "2024-06-01 at 09:00")
	assert.Equal(t, "bob@x.com", m.sent[2].ToEmail)
}

func TestConsumerSurvivesFailures(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	m := &recordingMailer{err: errors.New("smtp down")}

	c := New(bus, m, "notify")
	require.NoError(t, c.Start())

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, events.BookingApproved, map[string]int{"booking_id": 5}))
	assert.Empty(t, m.sent, "malformed payload is dropped")

	require.NoError(t, bus.Publish(ctx, events.BookingApproved, events.BookingResolvedEvent{BookingID: "b", RequesterEmail: "a@b.co"}))
	assert.Len(t, m.sent, 1)

	c.Stop()
	require.NoError(t, bus.Publish(ctx, events.BookingApproved, events.BookingResolvedEvent{BookingID: "c"}))
	assert.Len(t, m.sent, 1, "no delivery after stop")
}
