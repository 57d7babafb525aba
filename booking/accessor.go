package booking

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
)

// Store is the persistence contract behind the Accessor.
//
// Implementations enforce at most one confirmed booking per (date, time) on
// Insert and UpdateStatus and report a violation as ErrSlotConflict. Unknown
// ids yield ErrNotFound, malformed ids ErrInvalidInput, and infrastructure
// failures are wrapped with ErrStoreUnavailable.
type Store interface {
	// ConfirmedSlots returns the slot labels of confirmed bookings dated in [from, to).
	ConfirmedSlots(ctx context.Context, from, to time.Time) ([]string, error)
	SlotTaken(ctx context.Context, from, to time.Time, slot string) (bool, error)
	Insert(ctx context.Context, b Booking) (string, error)
	Get(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, status Status, now time.Time) (*Booking, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]Booking, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Options struct {
	// Location is the restaurant's time zone; calendar dates are resolved in it. Defaults to UTC.
	Location *time.Location
	// Timeout bounds every store call. Zero disables the bound.
	Timeout   time.Duration
	Publisher Publisher
	Now       func() time.Time
}

// Accessor implements availability, booking and lifecycle operations on top of a Store.
type Accessor struct {
	store     Store
	loc       *time.Location
	timeout   time.Duration
	publisher Publisher
	now       func() time.Time
}

func NewAccessor(store Store, opts Options) *Accessor {
	a := &Accessor{
		store:     store,
		loc:       opts.Location,
		timeout:   opts.Timeout,
		publisher: opts.Publisher,
		now:       opts.Now,
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

var tracer = otel.Tracer("restaurant-reservations/booking")

func (a *Accessor) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// localize moves stored instants into the restaurant time zone so Date formats as the booked calendar day.
func (a *Accessor) localize(b *Booking) {
	b.Date = b.Date.In(a.loc)
	b.CreatedAt = b.CreatedAt.In(a.loc)
	b.ExpiresAt = b.ExpiresAt.In(a.loc)
	if b.UpdatedAt != nil {
		u := b.UpdatedAt.In(a.loc)
		b.UpdatedAt = &u
	}
}

func (a *Accessor) publish(ctx context.Context, key string, evt Event) {
	if a.publisher == nil {
		return
	}
	evt.OccurredAt = a.now().UTC()
	if err := a.publisher.Publish(ctx, key, evt); err != nil {
		log.Printf("publish %s booking=%s: %v", key, evt.BookingID, err)
	}
}

func (a *Accessor) Ping(ctx context.Context) error {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.store.Ping(ctx)
}
