package booking

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// GetAvailability returns which slots of the given YYYY-MM-DD date can still be booked.
// A store failure is returned as an error and never reported as free slots.
func (a *Accessor) GetAvailability(ctx context.Context, date string) (*Availability, error) {
	ctx, span := tracer.Start(ctx, "booking.GetAvailability")
	defer span.End()
	span.SetAttributes(attribute.String("booking.date", date))

	day, err := ParseDate(date, a.loc)
	if err != nil {
		return nil, err
	}
	from, to := DayRange(day)

	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	taken, err := a.store.ConfirmedSlots(storeCtx, from, to)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("confirmed slots: %w", err)
	}

	return newAvailability(date, taken), nil
}

// newAvailability splits the catalog into booked and available slots, both in catalog order.
// Stored labels outside the catalog are ignored.
func newAvailability(date string, taken []string) *Availability {
	booked := make(map[string]bool, len(taken))
	for _, slot := range taken {
		booked[slot] = true
	}

	av := &Availability{
		Date:               date,
		AllTimeSlots:       DaySlots(),
		AvailableTimeSlots: []string{},
		BookedTimeSlots:    []string{},
	}
	for _, slot := range daySlots {
		if booked[slot] {
			av.BookedTimeSlots = append(av.BookedTimeSlots, slot)
		} else {
			av.AvailableTimeSlots = append(av.AvailableTimeSlots, slot)
		}
	}
	av.IsFullyBooked = len(av.AvailableTimeSlots) == 0
	return av
}
