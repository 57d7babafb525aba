package booking

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
)

// CreateBooking books a slot and returns the new booking's id.
//
// The pre-insert check only gives a fast answer; two racing callers can both
// pass it, and the store's uniqueness constraint then rejects the loser with
// ErrSlotConflict.
func (a *Accessor) CreateBooking(ctx context.Context, req NewBooking) (string, error) {
	ctx, span := tracer.Start(ctx, "booking.CreateBooking")
	defer span.End()

	if err := req.Validate(); err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("booking.date", req.Date), attribute.String("booking.time", req.Time))

	day, err := ParseDate(req.Date, a.loc)
	if err != nil {
		return "", err
	}
	from, to := DayRange(day)

	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	taken, err := a.store.SlotTaken(storeCtx, from, to, req.Time)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("slot taken: %w", err)
	}
	if taken {
		return "", ErrSlotConflict
	}

	b := Booking{
		Date:         from,
		Time:         req.Time,
		CustomerName: req.Name,
		PhoneNumber:  req.Phone,
		Status:       StatusConfirmed,
		CreatedAt:    a.now(),
		ExpiresAt:    WeekEnd(day),
	}
	id, err := a.store.Insert(storeCtx, b)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("insert booking: %w", err)
	}

	a.publish(ctx, EventCreated, Event{BookingID: id, Date: req.Date, Time: req.Time, Status: StatusConfirmed})
	return id, nil
}

func (a *Accessor) GetBooking(ctx context.Context, id string) (*Booking, error) {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	b, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	a.localize(b)
	return b, nil
}

// UpdateStatus moves a booking to status and stamps updatedAt.
// Re-confirming a booking whose slot has been taken again fails with ErrSlotConflict.
func (a *Accessor) UpdateStatus(ctx context.Context, id string, status string) (*Booking, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	b, err := a.store.UpdateStatus(storeCtx, id, st, a.now())
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	a.localize(b)

	a.publish(ctx, EventStatusChanged, Event{BookingID: b.ID, Date: b.Date.Format(DateLayout), Time: b.Time, Status: b.Status})
	return b, nil
}

func (a *Accessor) DeleteBooking(ctx context.Context, id string) error {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	if err := a.store.Delete(storeCtx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	a.publish(ctx, EventDeleted, Event{BookingID: id})
	return nil
}

// ListBookings returns bookings ordered by date, then slot in catalog order.
func (a *Accessor) ListBookings(ctx context.Context, filter ListFilter) ([]Booking, error) {
	q, err := a.query(filter)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	bookings, err := a.store.List(storeCtx, q)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	for i := range bookings {
		a.localize(&bookings[i])
	}
	SortBookings(bookings)
	return bookings, nil
}

func (a *Accessor) query(filter ListFilter) (Query, error) {
	var q Query
	if filter.Status != "" {
		st, err := ParseStatus(filter.Status)
		if err != nil {
			return Query{}, err
		}
		q.Status = st
	}

	if filter.CurrentWeek {
		q.From = WeekStart(a.now().In(a.loc))
		q.To = q.From.AddDate(0, 0, 7)
		return q, nil
	}

	if filter.From != "" {
		from, err := ParseDate(filter.From, a.loc)
		if err != nil {
			return Query{}, err
		}
		q.From = from
	}
	if filter.To != "" {
		to, err := ParseDate(filter.To, a.loc)
		if err != nil {
			return Query{}, err
		}
		_, q.To = DayRange(to)
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return Query{}, fmt.Errorf("%w: from must not be after to", ErrInvalidInput)
	}
	return q, nil
}

// PurgeExpired removes bookings whose expiry has passed and returns how many were removed.
func (a *Accessor) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	n, err := a.store.DeleteExpired(ctx, a.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return n, nil
}

func SortBookings(bookings []Booking) {
	slices.SortStableFunc(bookings, func(x, y Booking) int {
		if c := x.Date.Compare(y.Date); c != 0 {
			return c
		}
		return cmp.Compare(slotIndex(x.Time), slotIndex(y.Time))
	})
}
