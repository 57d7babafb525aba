package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultMongoDatabase   = "restaurant-bookings"
	DefaultMongoCollection = "bookings"

	codeNamespaceExists = 48
)

// Mongo connects the gateway to a MongoDB deployment and hands out the bookings collection.
type Mongo struct {
	Database               string
	Collection             string
	MaxPoolSize            uint64
	ServerSelectionTimeout time.Duration
}

func (m Mongo) Connect(ctx context.Context, uri string) (*mongo.Collection, error) {
	opts := options.Client().ApplyURI(uri)
	if m.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(m.MaxPoolSize)
	}
	if m.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(m.ServerSelectionTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	dbName, collName := m.Database, m.Collection
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}
	if collName == "" {
		collName = DefaultMongoCollection
	}
	coll := client.Database(dbName).Collection(collName)

	if err := EnsureCollection(ctx, coll); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return coll, nil
}

func (Mongo) Ping(ctx context.Context, coll *mongo.Collection) error {
	return coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (Mongo) Close(ctx context.Context, coll *mongo.Collection) error {
	return coll.Database().Client().Disconnect(ctx)
}

// BookingIndexes returns the confirmed-only slot uniqueness index and the expiry TTL index.
func BookingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetName("confirmed_slot_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "confirmed"}}),
		},
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().
				SetName("expires_at_ttl").
				SetExpireAfterSeconds(0),
		},
	}
}

// EnsureCollection creates the bookings collection if missing and registers its indexes.
func EnsureCollection(ctx context.Context, coll *mongo.Collection) error {
	err := coll.Database().CreateCollection(ctx, coll.Name())
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists) {
		return fmt.Errorf("create collection: %w", err)
	}
	if _, err := coll.Indexes().CreateMany(ctx, BookingIndexes()); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}
