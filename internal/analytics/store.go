package analytics

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/consultadmin/internal/database"
	"github.com/peternagy/consultadmin/internal/entity"
	"github.com/peternagy/consultadmin/internal/operation"
	"github.com/peternagy/consultadmin/internal/types"
)

// Store is the read side the engine aggregates over. Every method except
// Connect is an isolated operation and reports failure in its result.
type Store interface {
	Connect(ctx context.Context) error
	MaintenanceActive(ctx context.Context, now time.Time) types.OperationResult[bool]
	Count(ctx context.Context, kind entity.Kind) types.OperationResult[int64]
	CountSince(ctx context.Context, kind entity.Kind, since time.Time) types.OperationResult[int64]
	Group(ctx context.Context, kind entity.Kind, dist database.Distribution) types.OperationResult[[]types.GroupCount]
	RecentLeads(ctx context.Context, limit int64) types.OperationResult[[]types.LeadSummary]
	RecentUniversities(ctx context.Context, limit int64) types.OperationResult[[]types.UniversitySummary]
	RecentUpdates(ctx context.Context, limit int64) types.OperationResult[[]types.UpdateSummary]
	RecentSuccessStories(ctx context.Context, limit int64) types.OperationResult[[]types.SuccessStorySummary]
}

// Connector is the part of the connection manager the store needs.
type Connector interface {
	operation.Connector
	Connect(ctx context.Context) (*mongo.Client, error)
}

// MongoStore reads from MongoDB through isolated operations.
type MongoStore struct {
	conn   Connector
	runner *operation.Runner
}

// NewMongoStore creates a store. runner must wrap conn.
func NewMongoStore(conn Connector, runner *operation.Runner) *MongoStore {
	return &MongoStore{conn: conn, runner: runner}
}

func (s *MongoStore) Connect(ctx context.Context) error {
	_, err := s.conn.Connect(ctx)
	return err
}

// MaintenanceActive reports whether another process holds the maintenance lease.
func (s *MongoStore) MaintenanceActive(ctx context.Context, now time.Time) types.OperationResult[bool] {
	return operation.Run(ctx, s.runner, "lease_check", database.LeaseCollection, func(ctx context.Context, db *mongo.Database) (bool, error) {
		return database.LeaseActive(ctx, db, now)
	})
}

func (s *MongoStore) Count(ctx context.Context, kind entity.Kind) types.OperationResult[int64] {
	coll := entity.CollectionOf(kind)
	return operation.Run(ctx, s.runner, "count", coll, func(ctx context.Context, db *mongo.Database) (int64, error) {
		return database.Count(ctx, db, coll)
	})
}

func (s *MongoStore) CountSince(ctx context.Context, kind entity.Kind, since time.Time) types.OperationResult[int64] {
	coll := entity.CollectionOf(kind)
	return operation.Run(ctx, s.runner, "count_recent", coll, func(ctx context.Context, db *mongo.Database) (int64, error) {
		return database.CountSince(ctx, db, coll, entity.FieldCreatedAt, since)
	})
}

func (s *MongoStore) Group(ctx context.Context, kind entity.Kind, dist database.Distribution) types.OperationResult[[]types.GroupCount] {
	coll := entity.CollectionOf(kind)
	return operation.Run(ctx, s.runner, "group_by_"+dist.Field, coll, func(ctx context.Context, db *mongo.Database) ([]types.GroupCount, error) {
		return database.Group(ctx, db, coll, dist)
	})
}

func (s *MongoStore) RecentLeads(ctx context.Context, limit int64) types.OperationResult[[]types.LeadSummary] {
	return recent[types.LeadSummary](ctx, s.runner, entity.Leads, limit)
}

func (s *MongoStore) RecentUniversities(ctx context.Context, limit int64) types.OperationResult[[]types.UniversitySummary] {
	return recent[types.UniversitySummary](ctx, s.runner, entity.Universities, limit)
}

func (s *MongoStore) RecentUpdates(ctx context.Context, limit int64) types.OperationResult[[]types.UpdateSummary] {
	return recent[types.UpdateSummary](ctx, s.runner, entity.Updates, limit)
}

func (s *MongoStore) RecentSuccessStories(ctx context.Context, limit int64) types.OperationResult[[]types.SuccessStorySummary] {
	return recent[types.SuccessStorySummary](ctx, s.runner, entity.SuccessStories, limit)
}

func recent[T any](ctx context.Context, r *operation.Runner, kind entity.Kind, limit int64) types.OperationResult[[]T] {
	def := entity.MustLookup(kind)
	return operation.Run(ctx, r, "recent", def.Collection, func(ctx context.Context, db *mongo.Database) ([]T, error) {
		return database.Recent[T](ctx, db, def, limit)
	})
}
