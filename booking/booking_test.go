package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"restaurant-reservations/booking"
	"restaurant-reservations/booking/memory"
)

// MockPublisher is a mock implementation of the booking.Publisher interface
type MockPublisher struct {
	testifymock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

// failingStore answers every call with err.
type failingStore struct {
	booking.Store
	err error
}

func (f failingStore) ConfirmedSlots(context.Context, time.Time, time.Time) ([]string, error) {
	return nil, f.err
}

func (f failingStore) SlotTaken(context.Context, time.Time, time.Time, string) (bool, error) {
	return false, f.err
}

func (f failingStore) Ping(context.Context) error {
	return f.err
}

var fixedNow = time.Date(2025, 3, 12, 15, 4, 5, 0, time.UTC)

func newAccessor(t *testing.T) *booking.Accessor {
	t.Helper()
	return booking.NewAccessor(memory.NewStore(), booking.Options{
		Now: func() time.Time { return fixedNow },
	})
}

func janeDoe(slot string) booking.NewBooking {
	return booking.NewBooking{Date: "2025-03-10", Time: slot, Name: "Jane Doe", Phone: "555-123-4567"}
}

func TestAvailability(t *testing.T) {
	t.Parallel()

	t.Run("empty day has every slot", func(t *testing.T) {
		a := newAccessor(t)
		av, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.NoError(t, err)
		assert.Equal(t, "2025-03-10", av.Date)
		assert.Equal(t, booking.DaySlots(), av.AllTimeSlots)
		assert.Equal(t, booking.DaySlots(), av.AvailableTimeSlots)
		assert.Empty(t, av.BookedTimeSlots)
		assert.False(t, av.IsFullyBooked)
	})

	t.Run("booked slot leaves availability", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)

		av, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.NoError(t, err)
		assert.NotContains(t, av.AvailableTimeSlots, "4:30 PM")
		assert.Equal(t, []string{"12:30 PM", "8:30 PM"}, av.AvailableTimeSlots)
		assert.Equal(t, []string{"4:30 PM"}, av.BookedTimeSlots)

		other, err := a.GetAvailability(t.Context(), "2025-03-11")
		require.NoError(t, err)
		assert.Equal(t, booking.DaySlots(), other.AvailableTimeSlots)
	})

	t.Run("fully booked", func(t *testing.T) {
		a := newAccessor(t)
		for _, slot := range booking.DaySlots() {
			_, err := a.CreateBooking(t.Context(), janeDoe(slot))
			require.NoError(t, err)
		}

		av, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.NoError(t, err)
		assert.True(t, av.IsFullyBooked)
		assert.Empty(t, av.AvailableTimeSlots)
		assert.Equal(t, booking.DaySlots(), av.BookedTimeSlots)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)

		first, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.NoError(t, err)
		second, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("invalid date", func(t *testing.T) {
		a := newAccessor(t)
		for _, date := range []string{"", "2025-3-10", "10/03/2025", "2025-02-30", "tomorrow"} {
			_, err := a.GetAvailability(t.Context(), date)
			require.ErrorIs(t, err, booking.ErrInvalidInput, date)
		}
	})

	t.Run("store failure is not reported as free slots", func(t *testing.T) {
		down := errors.Join(booking.ErrStoreUnavailable, errors.New("connection refused"))
		a := booking.NewAccessor(failingStore{err: down}, booking.Options{})

		av, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.ErrorIs(t, err, booking.ErrStoreUnavailable)
		assert.Nil(t, av)
	})
}

func TestCreateBooking(t *testing.T) {
	t.Parallel()

	t.Run("create and get", func(t *testing.T) {
		a := newAccessor(t)
		id, err := a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)
		_, err = uuid.Parse(id)
		require.NoError(t, err)

		b, err := a.GetBooking(t.Context(), id)
		require.NoError(t, err)
		assert.Equal(t, id, b.ID)
		assert.Equal(t, "2025-03-10", b.Date.Format(booking.DateLayout))
		assert.Equal(t, "4:30 PM", b.Time)
		assert.Equal(t, "Jane Doe", b.CustomerName)
		assert.Equal(t, "555-123-4567", b.PhoneNumber)
		assert.Equal(t, booking.StatusConfirmed, b.Status)
		assert.Equal(t, fixedNow, b.CreatedAt)
		assert.Nil(t, b.UpdatedAt)
		assert.Equal(t, time.Date(2025, 3, 16, 23, 59, 59, int(999*time.Millisecond), time.UTC), b.ExpiresAt)
	})

	t.Run("trims fields", func(t *testing.T) {
		a := newAccessor(t)
		id, err := a.CreateBooking(t.Context(), booking.NewBooking{Date: " 2025-03-10 ", Time: "8:30 PM", Name: "  Jane Doe ", Phone: " (555) 123 4567 "})
		require.NoError(t, err)

		b, err := a.GetBooking(t.Context(), id)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", b.CustomerName)
		assert.Equal(t, "(555) 123 4567", b.PhoneNumber)
	})

	t.Run("slot conflict", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)

		_, err = a.CreateBooking(t.Context(), booking.NewBooking{Date: "2025-03-10", Time: "4:30 PM", Name: "John Roe", Phone: "555-987-6543"})
		require.ErrorIs(t, err, booking.ErrSlotConflict)
	})

	t.Run("time outside catalog", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.CreateBooking(t.Context(), janeDoe("3:00 PM"))
		require.ErrorIs(t, err, booking.ErrInvalidInput)
		assert.Contains(t, err.Error(), "time must be one of")
	})

	t.Run("concurrent requests for one slot", func(t *testing.T) {
		a := newAccessor(t)

		const callers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			conflicts int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := a.CreateBooking(context.Background(), janeDoe("8:30 PM"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, booking.ErrSlotConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, callers-1, conflicts)

		confirmed, err := a.ListBookings(t.Context(), booking.ListFilter{Status: "confirmed"})
		require.NoError(t, err)
		assert.Len(t, confirmed, 1)
	})

	t.Run("publishes created event", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", testifymock.Anything, booking.EventCreated, testifymock.MatchedBy(func(e booking.Event) bool {
			return e.BookingID != "" && e.Date == "2025-03-10" && e.Time == "12:30 PM" && e.Status == booking.StatusConfirmed
		})).Return(nil)

		a := booking.NewAccessor(memory.NewStore(), booking.Options{Publisher: pub, Now: func() time.Time { return fixedNow }})
		_, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("publish failure does not fail the booking", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", testifymock.Anything, booking.EventCreated, testifymock.Anything).Return(errors.New("broker down"))

		a := booking.NewAccessor(memory.NewStore(), booking.Options{Publisher: pub})
		_, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		down := errors.Join(booking.ErrStoreUnavailable, context.DeadlineExceeded)
		a := booking.NewAccessor(failingStore{err: down}, booking.Options{})
		_, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.ErrorIs(t, err, booking.ErrStoreUnavailable)
	})
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("cancel frees the slot", func(t *testing.T) {
		a := newAccessor(t)
		id, err := a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)

		b, err := a.UpdateStatus(t.Context(), id, "cancelled")
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, b.Status)
		require.NotNil(t, b.UpdatedAt)
		assert.Equal(t, fixedNow, *b.UpdatedAt)

		av, err := a.GetAvailability(t.Context(), "2025-03-10")
		require.NoError(t, err)
		assert.Contains(t, av.AvailableTimeSlots, "4:30 PM")

		_, err = a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)
	})

	t.Run("reconfirming a rebooked slot conflicts", func(t *testing.T) {
		a := newAccessor(t)
		first, err := a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)
		_, err = a.UpdateStatus(t.Context(), first, "cancelled")
		require.NoError(t, err)
		_, err = a.CreateBooking(t.Context(), janeDoe("4:30 PM"))
		require.NoError(t, err)

		_, err = a.UpdateStatus(t.Context(), first, "confirmed")
		require.ErrorIs(t, err, booking.ErrSlotConflict)
	})

	t.Run("completed", func(t *testing.T) {
		a := newAccessor(t)
		id, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)

		b, err := a.UpdateStatus(t.Context(), id, "completed")
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCompleted, b.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		a := newAccessor(t)
		id, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)

		_, err = a.UpdateStatus(t.Context(), id, "pending")
		require.ErrorIs(t, err, booking.ErrInvalidInput)
	})

	t.Run("update unknown booking", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.UpdateStatus(t.Context(), uuid.NewString(), "cancelled")
		require.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("get unknown booking", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.GetBooking(t.Context(), uuid.NewString())
		require.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		a := newAccessor(t)
		_, err := a.GetBooking(t.Context(), "not-an-id")
		require.ErrorIs(t, err, booking.ErrInvalidInput)
	})

	t.Run("delete", func(t *testing.T) {
		a := newAccessor(t)
		id, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)

		require.NoError(t, a.DeleteBooking(t.Context(), id))
		_, err = a.GetBooking(t.Context(), id)
		require.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("delete unknown booking", func(t *testing.T) {
		a := newAccessor(t)
		err := a.DeleteBooking(t.Context(), uuid.NewString())
		require.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("status change and delete publish events", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", testifymock.Anything, booking.EventCreated, testifymock.Anything).Return(nil)
		pub.On("Publish", testifymock.Anything, booking.EventStatusChanged, testifymock.MatchedBy(func(e booking.Event) bool {
			return e.Status == booking.StatusCancelled && e.Date == "2025-03-10"
		})).Return(nil)
		pub.On("Publish", testifymock.Anything, booking.EventDeleted, testifymock.Anything).Return(nil)

		a := booking.NewAccessor(memory.NewStore(), booking.Options{Publisher: pub})
		id, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
		require.NoError(t, err)
		_, err = a.UpdateStatus(t.Context(), id, "cancelled")
		require.NoError(t, err)
		require.NoError(t, a.DeleteBooking(t.Context(), id))

		pub.AssertExpectations(t)
	})
}

func TestListBookings(t *testing.T) {
	t.Parallel()

	a := newAccessor(t)
	requests := []booking.NewBooking{
		{Date: "2025-03-17", Time: "12:30 PM", Name: "Next Week", Phone: "555-000-0001"},
		{Date: "2025-03-10", Time: "8:30 PM", Name: "Monday Late", Phone: "555-000-0002"},
		{Date: "2025-03-10", Time: "12:30 PM", Name: "Monday Lunch", Phone: "555-000-0003"},
		{Date: "2025-03-10", Time: "4:30 PM", Name: "Monday Tea", Phone: "555-000-0004"},
		{Date: "2025-03-14", Time: "4:30 PM", Name: "Friday Tea", Phone: "555-000-0005"},
	}
	ids := make(map[string]string)
	for _, req := range requests {
		id, err := a.CreateBooking(t.Context(), req)
		require.NoError(t, err)
		ids[req.Name] = id
	}
	_, err := a.UpdateStatus(t.Context(), ids["Friday Tea"], "cancelled")
	require.NoError(t, err)

	names := func(bookings []booking.Booking) []string {
		out := make([]string, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, b.CustomerName)
		}
		return out
	}

	t.Run("all ordered by date then slot", func(t *testing.T) {
		bookings, err := a.ListBookings(t.Context(), booking.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Monday Lunch", "Monday Tea", "Monday Late", "Friday Tea", "Next Week"}, names(bookings))
	})

	t.Run("date window is inclusive", func(t *testing.T) {
		bookings, err := a.ListBookings(t.Context(), booking.ListFilter{From: "2025-03-11", To: "2025-03-14"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Friday Tea"}, names(bookings))
	})

	t.Run("current week", func(t *testing.T) {
		bookings, err := a.ListBookings(t.Context(), booking.ListFilter{CurrentWeek: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"Monday Lunch", "Monday Tea", "Monday Late", "Friday Tea"}, names(bookings))
	})

	t.Run("status", func(t *testing.T) {
		bookings, err := a.ListBookings(t.Context(), booking.ListFilter{Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Friday Tea"}, names(bookings))
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := a.ListBookings(t.Context(), booking.ListFilter{From: "2025-03-14", To: "2025-03-10"})
		require.ErrorIs(t, err, booking.ErrInvalidInput)

		_, err = a.ListBookings(t.Context(), booking.ListFilter{From: "March"})
		require.ErrorIs(t, err, booking.ErrInvalidInput)

		_, err = a.ListBookings(t.Context(), booking.ListFilter{Status: "pending"})
		require.ErrorIs(t, err, booking.ErrInvalidInput)
	})
}

func TestPurgeExpired(t *testing.T) {
	t.Parallel()

	now := fixedNow
	store := memory.NewStore()
	a := booking.NewAccessor(store, booking.Options{Now: func() time.Time { return now }})

	_, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
	require.NoError(t, err)
	_, err = a.CreateBooking(t.Context(), booking.NewBooking{Date: "2025-03-17", Time: "12:30 PM", Name: "Next Week", Phone: "555-000-0001"})
	require.NoError(t, err)

	n, err := a.PurgeExpired(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	now = time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	n, err = a.PurgeExpired(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	bookings, err := a.ListBookings(t.Context(), booking.ListFilter{})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Next Week", bookings[0].CustomerName)
}

func TestTimeZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+10", 10*60*60)
	a := booking.NewAccessor(memory.NewStore(), booking.Options{Location: loc})

	id, err := a.CreateBooking(t.Context(), janeDoe("12:30 PM"))
	require.NoError(t, err)

	b, err := a.GetBooking(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", b.Date.Format(booking.DateLayout))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc).Unix(), b.Date.Unix())

	av, err := a.GetAvailability(t.Context(), "2025-03-09")
	require.NoError(t, err)
	assert.False(t, av.IsFullyBooked)
	assert.Empty(t, av.BookedTimeSlots)
}

func TestPing(t *testing.T) {
	t.Parallel()

	require.NoError(t, newAccessor(t).Ping(t.Context()))

	down := booking.NewAccessor(failingStore{err: booking.ErrStoreUnavailable}, booking.Options{})
	require.ErrorIs(t, down.Ping(t.Context()), booking.ErrStoreUnavailable)
}
