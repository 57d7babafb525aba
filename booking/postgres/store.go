// Package postgres stores bookings in PostgreSQL through database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"restaurant-reservations/booking"
	"restaurant-reservations/database"
)

const uniqueViolation = pq.ErrorCode("23505")

type Acquirer interface {
	Acquire(ctx context.Context) (*sql.DB, error)
}

type Store struct {
	conns Acquirer
}

func NewStore(conns Acquirer) *Store {
	return &Store{conns: conns}
}

func (s *Store) db(ctx context.Context) (*sql.DB, error) {
	db, err := s.conns.Acquire(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", booking.ErrStoreUnavailable, err)
	}
	return db, nil
}

// classify maps driver errors onto the booking taxonomy: a unique violation is
// the authoritative slot conflict, anything else an unavailable store.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", booking.ErrSlotConflict, pqErr.Constraint)
	}
	return fmt.Errorf("%w: %w", booking.ErrStoreUnavailable, err)
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid booking ID", booking.ErrInvalidInput)
	}
	return parsed, nil
}

func (s *Store) ConfirmedSlots(ctx context.Context, from, to time.Time) ([]string, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT time_slot FROM bookings WHERE booking_date >= $1 AND booking_date < $2 AND status = $3`
	rows, err := db.QueryContext(ctx, query, from, to, string(booking.StatusConfirmed))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return slots, nil
}

func (s *Store) SlotTaken(ctx context.Context, from, to time.Time, slot string) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE booking_date >= $1 AND booking_date < $2 AND time_slot = $3 AND status = $4)`
	if err := db.QueryRowContext(ctx, query, from, to, slot, string(booking.StatusConfirmed)).Scan(&taken); err != nil {
		return false, classify(err)
	}
	return taken, nil
}

func (s *Store) Insert(ctx context.Context, b booking.Booking) (string, error) {
	db, err := s.db(ctx)
	if err != nil {
		return "", err
	}

	id := uuid.New()

	query := `INSERT INTO bookings (id, booking_date, time_slot, customer_name, phone_number, status, created_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := db.ExecContext(ctx, query, id, b.Date, b.Time, b.CustomerName, b.PhoneNumber, string(b.Status), b.CreatedAt, b.ExpiresAt); err != nil {
		return "", classify(err)
	}
	return id.String(), nil
}

const columns = `id, booking_date, time_slot, customer_name, phone_number, status, created_at, updated_at, expires_at`

type scanner interface {
	Scan(dest ...any) error
}

// scanBooking rejects rows whose status is outside the known set.
func scanBooking(row scanner) (*booking.Booking, error) {
	var (
		b         booking.Booking
		id        uuid.UUID
		status    string
		updatedAt sql.NullTime
	)
	if err := row.Scan(&id, &b.Date, &b.Time, &b.CustomerName, &b.PhoneNumber, &status, &b.CreatedAt, &updatedAt, &b.ExpiresAt); err != nil {
		return nil, err
	}
	st, err := booking.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("malformed booking %s: unknown status %q", id, status)
	}
	b.ID = id.String()
	b.Status = st
	if updatedAt.Valid {
		b.UpdatedAt = &updatedAt.Time
	}
	return &b, nil
}

func (s *Store) Get(ctx context.Context, id string) (*booking.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + columns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(db.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, classify(err)
	}
	return b, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status booking.Status, now time.Time) (*booking.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 RETURNING ` + columns
	b, err := scanBooking(db.QueryRowContext(ctx, query, string(status), now, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, classify(err)
	}
	return b, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	bookingID, err := parseID(id)
	if err != nil {
		return err
	}
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query := `DELETE FROM bookings WHERE id = $1`
	res, err := db.ExecContext(ctx, query, bookingID)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, q booking.Query) ([]booking.Booking, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("booking_date >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("booking_date < $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + columns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY booking_date ASC, time_slot ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	bookings := []booking.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return bookings, nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	query := `DELETE FROM bookings WHERE expires_at < $1`
	res, err := db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", booking.ErrStoreUnavailable, err)
	}
	return nil
}
