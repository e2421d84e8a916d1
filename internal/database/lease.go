package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LeaseCollection holds the maintenance lease shared by every process that
// uses the database. It is never backed up or restored.
const LeaseCollection = "maintenance_leases"

const maintenanceLeaseID = "maintenance"

// ErrLeaseHeld is returned when another holder owns an unexpired lease.
var ErrLeaseHeld = errors.New("maintenance lease is held by another process")

// Lease is the stored lease document.
type Lease struct {
	ID         string    `bson:"_id"`
	Holder     string    `bson:"holder"`
	AcquiredAt time.Time `bson:"acquiredAt"`
	ExpiresAt  time.Time `bson:"expiresAt"`
}

// AcquireLease takes or extends the maintenance lease for holder until
// now+ttl. An expired lease is taken over.
func AcquireLease(ctx context.Context, db *mongo.Database, holder string, now time.Time, ttl time.Duration) error {
	filter := bson.D{
		{Key: "_id", Value: maintenanceLeaseID},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: now}}}},
			bson.D{{Key: "holder", Value: holder}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "holder", Value: holder},
		{Key: "acquiredAt", Value: now},
		{Key: "expiresAt", Value: now.Add(ttl)},
	}}}

	// A live lease held by someone else fails the filter, and the upsert then
	// collides on _id.
	_, err := db.Collection(LeaseCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrLeaseHeld
	}
	if err != nil {
		return fmt.Errorf("failed to acquire maintenance lease: %w", err)
	}
	return nil
}

// ReleaseLease drops the lease if holder still owns it.
func ReleaseLease(ctx context.Context, db *mongo.Database, holder string) error {
	_, err := db.Collection(LeaseCollection).DeleteOne(ctx, bson.D{
		{Key: "_id", Value: maintenanceLeaseID},
		{Key: "holder", Value: holder},
	})
	if err != nil {
		return fmt.Errorf("failed to release maintenance lease: %w", err)
	}
	return nil
}

// LeaseActive reports whether anyone holds an unexpired lease at now.
func LeaseActive(ctx context.Context, db *mongo.Database, now time.Time) (bool, error) {
	n, err := db.Collection(LeaseCollection).CountDocuments(ctx, bson.D{
		{Key: "_id", Value: maintenanceLeaseID},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to read maintenance lease: %w", err)
	}
	return n > 0, nil
}
