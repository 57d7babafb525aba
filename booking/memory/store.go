// Package memory is an in-process booking.Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-reservations/booking"
)

type Store struct {
	mu       sync.RWMutex
	bookings map[string]booking.Booking
}

func NewStore() *Store {
	return &Store{bookings: make(map[string]booking.Booking)}
}

func (s *Store) ConfirmedSlots(_ context.Context, from, to time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := booking.Query{From: from, To: to, Status: booking.StatusConfirmed}
	var slots []string
	for _, b := range s.bookings {
		if q.Matches(b) {
			slots = append(slots, b.Time)
		}
	}
	return slots, nil
}

func (s *Store) SlotTaken(_ context.Context, from, to time.Time, slot string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := booking.Query{From: from, To: to, Status: booking.StatusConfirmed}
	for _, b := range s.bookings {
		if b.Time == slot && q.Matches(b) {
			return true, nil
		}
	}
	return false, nil
}

// occupied mirrors the partial unique index of the persistent stores. Callers hold mu.
func (s *Store) occupied(b booking.Booking, except string) bool {
	for id, other := range s.bookings {
		if id == except || other.Status != booking.StatusConfirmed {
			continue
		}
		if other.Time == b.Time && other.Date.Equal(b.Date) {
			return true
		}
	}
	return false
}

func (s *Store) Insert(_ context.Context, b booking.Booking) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Status == booking.StatusConfirmed && s.occupied(b, "") {
		return "", booking.ErrSlotConflict
	}
	b.ID = uuid.NewString()
	s.bookings[b.ID] = b
	return b.ID, nil
}

func (s *Store) Get(_ context.Context, id string) (*booking.Booking, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return &b, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status booking.Status, now time.Time) (*booking.Booking, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	if status == booking.StatusConfirmed && s.occupied(b, id) {
		return nil, booking.ErrSlotConflict
	}
	b.Status = status
	b.UpdatedAt = &now
	s.bookings[id] = b
	return &b, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return booking.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *Store) List(_ context.Context, q booking.Query) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []booking.Booking{}
	for _, b := range s.bookings {
		if q.Matches(b) {
			out = append(out, b)
		}
	}
	booking.SortBookings(out)
	return out, nil
}

func (s *Store) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, b := range s.bookings {
		if b.ExpiresAt.Before(now) {
			delete(s.bookings, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid booking ID", booking.ErrInvalidInput)
	}
	return nil
}
