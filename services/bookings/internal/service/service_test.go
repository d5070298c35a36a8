package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveengys/connectify-sub000/pkg/config"
	"github.com/praveengys/connectify-sub000/pkg/events"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Reservation: config.ReservationConfig{
			MaxAttempts:     4,
			RetryPause:      time.Millisecond,
			NotesMaxLength:  500,
			SlotDurationMin: 30,
		},
	}
}

type fixture struct {
	store        repository.Store
	bus          *events.LocalEventBus
	slots        SlotService
	reservations ReservationService
	lifecycle    LifecycleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	store := memory.New().Repositories()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { bus.Close() })

	notifier := NewNotifier(bus, store.Slots)
	return &fixture{
		store:        store,
		bus:          bus,
		slots:        NewSlotService(store.Slots, bus, notifier, cfg),
		reservations: NewReservationService(store.Reservations, notifier, cfg),
		lifecycle:    NewLifecycleService(store.Bookings, notifier),
	}
}

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustTimes(t *testing.T, in ...string) []domain.TimeOfDay {
	t.Helper()
	out := make([]domain.TimeOfDay, len(in))
	for i, s := range in {
		tod, err := domain.ParseTimeOfDay(s)
		require.NoError(t, err)
		out[i] = tod
	}
	return out
}

func startTimes(slots []domain.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.StartTime.String()
	}
	return out
}

var jane = domain.Requester{Name: "Jane", Email: "jane@x.com"}

func TestBookingFlowScenarios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	date := mustDate(t, "2024-06-01")

	// Scenario A
	created, err := f.slots.CreateSlots(ctx, date, mustTimes(t, "09:00", "09:30"))
	require.NoError(t, err)
	require.Len(t, created, 2)

	avail, err := f.slots.ListAvailableSlots(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, startTimes(avail))
	slot0900 := avail[0].ID

	// Scenario B
	booking, err := f.reservations.ReserveSlot(ctx, slot0900, jane)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, booking.Status)
	assert.Equal(t, slot0900, booking.SlotID)

	avail, err = f.slots.ListAvailableSlots(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30"}, startTimes(avail))

	// Scenario C
	approved, err := f.lifecycle.ApproveBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingScheduled, approved.Status)

	_, err = f.reservations.ReserveSlot(ctx, slot0900, domain.Requester{Name: "Bob", Email: "bob@x.com"})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}

func TestConcurrentReservationsOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	date := mustDate(t, "2024-06-01")

	created, err := f.slots.CreateSlots(ctx, date, mustTimes(t, "10:00"))
	require.NoError(t, err)
	slotID := created[0].ID

	const callers = 50
	var (
		wg          sync.WaitGroup
		successes   atomic.Int32
		unavailable atomic.Int32
		other       atomic.Int32
		start       = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.reservations.ReserveSlot(ctx, slotID, jane)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrSlotUnavailable):
				unavailable.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, callers-1, unavailable.Load())
	assert.EqualValues(t, 0, other.Load())

	slot, err := f.store.Slots.GetByID(ctx, slotID)
	require.NoError(t, err)
	assert.True(t, slot.IsBooked)

	bookings, err := f.lifecycle.ListBookings(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, slotID, bookings[0].SlotID)
}

func TestListBookingsReturnsEveryBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	date := mustDate(t, "2024-06-02")

	var times []domain.TimeOfDay
	for m := 8 * 60; len(times) < 25; m += 15 {
		times = append(times, domain.TimeOfDay(m))
	}
	created, err := f.slots.CreateSlots(ctx, date, times)
	require.NoError(t, err)
	require.Len(t, created, 25)
	for _, slot := range created {
		_, err := f.reservations.ReserveSlot(ctx, slot.ID, jane)
		require.NoError(t, err)
	}

	all, err := f.lifecycle.ListBookings(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 25)

	page, err := f.lifecycle.ListBookings(ctx, domain.BookingFilter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, page, 5)

	big, err := f.lifecycle.ListBookings(ctx, domain.BookingFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, big, 25)
}

func TestCreateSlotsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	date := mustDate(t, "2024-06-01")

	_, err := f.slots.CreateSlots(ctx, date, mustTimes(t, "09:00", "09:30", "09:00"))
	require.NoError(t, err)
	again, err := f.slots.CreateSlots(ctx, date, mustTimes(t, "09:30", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, startTimes(again))

	avail, err := f.slots.ListAvailableSlots(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, startTimes(avail))

	_, err = f.slots.CreateSlots(ctx, date, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.slots.CreateSlots(ctx, domain.Date{}, mustTimes(t, "09:00"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLifecycleTerminalStates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.slots.CreateSlots(ctx, mustDate(t, "2024-06-01"), mustTimes(t, "09:00", "09:30"))
	require.NoError(t, err)

	denied, err := f.reservations.ReserveSlot(ctx, created[0].ID, jane)
	require.NoError(t, err)
	_, err = f.lifecycle.DenyBooking(ctx, denied.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.ApproveBooking(ctx, denied.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	got, err := f.lifecycle.GetBooking(ctx, denied.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingDenied, got.Status)

	scheduled, err := f.reservations.ReserveSlot(ctx, created[1].ID, jane)
	require.NoError(t, err)
	_, err = f.lifecycle.ApproveBooking(ctx, scheduled.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.DenyBooking(ctx, scheduled.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	got, err = f.lifecycle.GetBooking(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingScheduled, got.Status)

	// Slots stay booked whatever the outcome.
	avail, err := f.slots.ListAvailableSlots(ctx, mustDate(t, "2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, avail)
}

func TestLifecycleNotFoundAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.lifecycle.ApproveBooking(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	_, err = f.lifecycle.DenyBooking(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.lifecycle.GetBooking(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

type countingReservations struct {
	calls atomic.Int32
	err   error
}

func (c *countingReservations) ClaimSlot(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	c.calls.Add(1)
	return nil, c.err
}

type nopNotifier struct{}

func (nopNotifier) SlotsCreated(context.Context, domain.Date, []domain.Slot) {}
func (nopNotifier) BookingReserved(context.Context, domain.Booking)          {}
func (nopNotifier) BookingResolved(context.Context, domain.Booking)          {}

func TestReserveSlotTransientConflict(t *testing.T) {
	repo := &countingReservations{err: domain.ErrWriteConflict}
	svc := NewReservationService(repo, nopNotifier{}, testConfig())

	_, err := svc.ReserveSlot(context.Background(), uuid.NewString(), jane)
	assert.ErrorIs(t, err, domain.ErrTransientConflict)
	assert.NotErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.EqualValues(t, 4, repo.calls.Load())
}

func TestReserveSlotStopsRetryOnCancel(t *testing.T) {
	repo := &countingReservations{err: domain.ErrWriteConflict}
	cfg := testConfig()
	cfg.Reservation.RetryPause = time.Hour
	svc := NewReservationService(repo, nopNotifier{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ReserveSlot(ctx, uuid.NewString(), jane)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, repo.calls.Load())
}

func TestReserveSlotValidatesBeforeStore(t *testing.T) {
	repo := &countingReservations{}
	svc := NewReservationService(repo, nopNotifier{}, testConfig())
	ctx := context.Background()

	cases := map[string]struct {
		slotID string
		req    domain.Requester
	}{
		"bad slot id": {"slot-1", jane},
		"no name":     {uuid.NewString(), domain.Requester{Email: "a@b.co"}},
		"bad email":   {uuid.NewString(), domain.Requester{Name: "A", Email: "a@b"}},
		"long notes":  {uuid.NewString(), domain.Requester{Name: "A", Email: "a@b.co", Notes: string(make([]rune, 501))}},
	}
	for name, tc := range cases {
		_, err := svc.ReserveSlot(ctx, tc.slotID, tc.req)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}
	assert.EqualValues(t, 0, repo.calls.Load())
}

func TestReserveSlotUnknownSlot(t *testing.T) {
	f := newFixture(t)
	_, err := f.reservations.ReserveSlot(context.Background(), uuid.NewString(), jane)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

type failingPublisher struct {
	calls chan string
}

func (p *failingPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	p.calls <- subject
	return errors.New("bus down")
}

func (p *failingPublisher) Close() error { return nil }

func TestNotifierFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := memory.New().Repositories()
	pub := &failingPublisher{calls: make(chan string, 16)}
	notifier := NewNotifier(pub, store.Slots)

	slots := NewSlotService(store.Slots, events.NewLocalEventBus(), notifier, cfg)
	reservations := NewReservationService(store.Reservations, notifier, cfg)
	lifecycle := NewLifecycleService(store.Bookings, notifier)

	created, err := slots.CreateSlots(ctx, mustDate(t, "2024-06-01"), mustTimes(t, "09:00"))
	require.NoError(t, err)
	b, err := reservations.ReserveSlot(ctx, created[0].ID, jane)
	require.NoError(t, err)

	approved, err := lifecycle.ApproveBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingScheduled, approved.Status)

	require.Eventually(t, func() bool {
		for {
			select {
			case subject := <-pub.calls:
				if subject == events.BookingApproved {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)

	got, err := lifecycle.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingScheduled, got.Status)
}

func TestResolvedEventCarriesSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got := make(chan events.BookingResolvedEvent, 1)
	_, err := f.bus.Subscribe(events.BookingDenied, func(msg *events.Message) {
		var ev events.BookingResolvedEvent
		if msg.Decode(&ev) == nil {
			got <- ev
		}
	})
	require.NoError(t, err)

	created, err := f.slots.CreateSlots(ctx, mustDate(t, "2024-06-01"), mustTimes(t, "11:30"))
	require.NoError(t, err)
	b, err := f.reservations.ReserveSlot(ctx, created[0].ID, jane)
	require.NoError(t, err)
	_, err = f.lifecycle.DenyBooking(ctx, b.ID)
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, b.ID, ev.BookingID)
		assert.Equal(t, "denied", ev.Status)
		assert.Equal(t, "2024-06-01", ev.SlotDate)
		assert.Equal(t, "11:30", ev.SlotStartTime)
		assert.Equal(t, "jane@x.com", ev.RequesterEmail)
	case <-time.After(time.Second):
		t.Fatal("no booking.denied event")
	}
}

func TestSubscribeToAvailableSlots(t *testing.T) {
	f := newFixture(t)
	date := mustDate(t, "2024-06-01")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := f.slots.CreateSlots(ctx, date, mustTimes(t, "09:00", "09:30"))
	require.NoError(t, err)

	var (
		mu        sync.Mutex
		snapshots [][]string
	)
	err = f.slots.SubscribeToAvailableSlots(ctx, date, func(slots []domain.Slot) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, startTimes(slots))
	})
	require.NoError(t, err)

	_, err = f.reservations.ReserveSlot(ctx, created[0].ID, jane)
	require.NoError(t, err)

	// Other dates do not trigger a refresh.
	_, err = f.slots.CreateSlots(ctx, mustDate(t, "2024-06-02"), mustTimes(t, "09:00"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 2)
	assert.Equal(t, []string{"09:00", "09:30"}, snapshots[0])
	assert.Equal(t, []string{"09:30"}, snapshots[1])
}
