// Package mongostore stores bookings in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"restaurant-reservations/booking"
	"restaurant-reservations/database"
)

type Acquirer interface {
	Acquire(ctx context.Context) (*mongo.Collection, error)
}

type Store struct {
	conns Acquirer
}

func NewStore(conns Acquirer) *Store {
	return &Store{conns: conns}
}

type document struct {
	ID           primitive.ObjectID `bson:"_id"`
	Date         time.Time          `bson:"date"`
	Time         string             `bson:"time"`
	CustomerName string             `bson:"customerName"`
	PhoneNumber  string             `bson:"phoneNumber"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    *time.Time         `bson:"updatedAt,omitempty"`
	ExpiresAt    time.Time          `bson:"expiresAt"`
}

func fromBooking(id primitive.ObjectID, b booking.Booking) document {
	return document{
		ID:           id,
		Date:         b.Date,
		Time:         b.Time,
		CustomerName: b.CustomerName,
		PhoneNumber:  b.PhoneNumber,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		ExpiresAt:    b.ExpiresAt,
	}
}

// toBooking rejects documents whose status is outside the known set.
func (d document) toBooking() (*booking.Booking, error) {
	st, err := booking.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("malformed booking %s: unknown status %q", d.ID.Hex(), d.Status)
	}
	return &booking.Booking{
		ID:           d.ID.Hex(),
		Date:         d.Date,
		Time:         d.Time,
		CustomerName: d.CustomerName,
		PhoneNumber:  d.PhoneNumber,
		Status:       st,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		ExpiresAt:    d.ExpiresAt,
	}, nil
}

func dayFilter(from, to time.Time) bson.M {
	return bson.M{"$gte": from, "$lt": to}
}

func confirmedFilter(from, to time.Time) bson.M {
	return bson.M{"date": dayFilter(from, to), "status": string(booking.StatusConfirmed)}
}

func slotFilter(from, to time.Time, slot string) bson.M {
	f := confirmedFilter(from, to)
	f["time"] = slot
	return f
}

func listFilter(q booking.Query) bson.M {
	f := bson.M{}
	date := bson.M{}
	if !q.From.IsZero() {
		date["$gte"] = q.From
	}
	if !q.To.IsZero() {
		date["$lt"] = q.To
	}
	if len(date) > 0 {
		f["date"] = date
	}
	if q.Status != "" {
		f["status"] = string(q.Status)
	}
	return f
}

func (s *Store) coll(ctx context.Context) (*mongo.Collection, error) {
	coll, err := s.conns.Acquire(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", booking.ErrStoreUnavailable, err)
	}
	return coll, nil
}

// classify maps a duplicate key on the partial unique index to a slot conflict.
func classify(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", booking.ErrSlotConflict, err)
	}
	return fmt.Errorf("%w: %w", booking.ErrStoreUnavailable, err)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid booking ID", booking.ErrInvalidInput)
	}
	return oid, nil
}

func (s *Store) ConfirmedSlots(ctx context.Context, from, to time.Time) ([]string, error) {
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetProjection(bson.M{"time": 1})
	cur, err := coll.Find(ctx, confirmedFilter(from, to), opts)
	if err != nil {
		return nil, classify(err)
	}
	var docs []struct {
		Time string `bson:"time"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	slots := make([]string, 0, len(docs))
	for _, d := range docs {
		slots = append(slots, d.Time)
	}
	return slots, nil
}

func (s *Store) SlotTaken(ctx context.Context, from, to time.Time, slot string) (bool, error) {
	coll, err := s.coll(ctx)
	if err != nil {
		return false, err
	}

	n, err := coll.CountDocuments(ctx, slotFilter(from, to, slot), options.Count().SetLimit(1))
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

func (s *Store) Insert(ctx context.Context, b booking.Booking) (string, error) {
	coll, err := s.coll(ctx)
	if err != nil {
		return "", err
	}

	id := primitive.NewObjectID()
	if _, err := coll.InsertOne(ctx, fromBooking(id, b)); err != nil {
		return "", classify(err)
	}
	return id.Hex(), nil
}

func (s *Store) Get(ctx context.Context, id string) (*booking.Booking, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, booking.ErrNotFound
		}
		return nil, classify(err)
	}
	return doc.toBooking()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status booking.Status, now time.Time) (*booking.Booking, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"status": string(status), "updatedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc document
	if err := coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, booking.ErrNotFound
		}
		return nil, classify(err)
	}
	return doc.toBooking()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return classify(err)
	}
	if res.DeletedCount == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, q booking.Query) ([]booking.Booking, error) {
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	cur, err := coll.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, classify(err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	bookings := make([]booking.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toBooking()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, nil
}

// DeleteExpired sweeps what the TTL monitor has not removed yet; the monitor runs about once a minute.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	coll, err := s.coll(ctx)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
	if err != nil {
		return 0, classify(err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	coll, err := s.coll(ctx)
	if err != nil {
		return err
	}
	if err := coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", booking.ErrStoreUnavailable, err)
	}
	return nil
}
