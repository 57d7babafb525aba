package booking

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// The restaurant seats one party per slot; these are the only bookable times of a day.
var daySlots = []string{"12:30 PM", "4:30 PM", "8:30 PM"}

// DaySlots returns the fixed slot catalog in serving order.
func DaySlots() []string {
	return slices.Clone(daySlots)
}

func IsSlot(s string) bool {
	return slices.Contains(daySlots, s)
}

// slotIndex orders slot labels by the catalog. Unknown labels sort last.
func slotIndex(s string) int {
	if i := slices.Index(daySlots, s); i >= 0 {
		return i
	}
	return len(daySlots)
}

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: invalid status %q, use confirmed, cancelled, or completed", ErrInvalidInput, s)
}

type Booking struct {
	ID           string     `json:"id"`
	Date         time.Time  `json:"date"`
	Time         string     `json:"time"`
	CustomerName string     `json:"customerName"`
	PhoneNumber  string     `json:"phoneNumber"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

// NewBooking is a customer's booking request as submitted by the booking form.
type NewBooking struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,slot"`
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" validate:"required,phone"`
}

// Accepts common formats with an optional country code, e.g. 555-123-4567, (555) 123 4567, +1 555.123.4567.
var phonePattern = regexp.MustCompile(`^(\+?\d{1,3}[-\s.]?)?(\(?\d{3}\)?[-\s.]?)?\d{3}[-\s.]?\d{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return IsSlot(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate trims the free-text fields in place and checks the request.
func (b *NewBooking) Validate() error {
	b.Date = strings.TrimSpace(b.Date)
	b.Time = strings.TrimSpace(b.Time)
	b.Name = strings.TrimSpace(b.Name)
	b.Phone = strings.TrimSpace(b.Phone)

	err := validate.Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "datetime":
		return fe.Field() + " must be formatted as YYYY-MM-DD"
	case "slot":
		return fe.Field() + " must be one of " + strings.Join(daySlots, ", ")
	case "phone":
		return fe.Field() + " must be a valid phone number"
	case "min", "max":
		return fe.Field() + " must be between 2 and 100 characters"
	}
	return fe.Field() + " is invalid"
}

type Availability struct {
	Date               string   `json:"date"`
	AllTimeSlots       []string `json:"allTimeSlots"`
	AvailableTimeSlots []string `json:"availableTimeSlots"`
	BookedTimeSlots    []string `json:"bookedTimeSlots"`
	IsFullyBooked      bool     `json:"isFullyBooked"`
}

// ListFilter narrows an admin listing. Dates are inclusive YYYY-MM-DD values.
type ListFilter struct {
	From        string
	To          string
	Status      string
	CurrentWeek bool
}

// Query is the store-level form of a ListFilter: From is inclusive, To exclusive.
// Zero bounds and an empty status are not applied.
type Query struct {
	From   time.Time
	To     time.Time
	Status Status
}

// Matches reports whether b falls inside the query.
func (q Query) Matches(b Booking) bool {
	if !q.From.IsZero() && b.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !b.Date.Before(q.To) {
		return false
	}
	return q.Status == "" || b.Status == q.Status
}

const (
	EventCreated       = "booking.created"
	EventStatusChanged = "booking.status_changed"
	EventDeleted       = "booking.deleted"
)

type Event struct {
	BookingID  string    `json:"bookingId"`
	Date       string    `json:"date,omitempty"`
	Time       string    `json:"time,omitempty"`
	Status     Status    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
