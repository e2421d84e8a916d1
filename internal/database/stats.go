package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/consultadmin/internal/bsonutil"
	"github.com/peternagy/consultadmin/internal/types"
)

// GetCollectionStats runs collStats for one collection.
func GetCollectionStats(ctx context.Context, db *mongo.Database, collName string) (*types.CollectionStats, error) {
	if err := ValidateCollectionName(collName); err != nil {
		return nil, err
	}

	var result bson.M
	err := db.RunCommand(ctx, bson.D{{Key: "collStats", Value: collName}}).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection stats: %w", err)
	}

	stats := &types.CollectionStats{
		Namespace:      fmt.Sprintf("%s.%s", db.Name(), collName),
		Count:          bsonutil.Int64Field(result, "count"),
		Size:           bsonutil.Int64Field(result, "size"),
		StorageSize:    bsonutil.Int64Field(result, "storageSize"),
		AvgObjSize:     bsonutil.Int64Field(result, "avgObjSize"),
		IndexCount:     int(bsonutil.Int64Field(result, "nindexes")),
		TotalIndexSize: bsonutil.Int64Field(result, "totalIndexSize"),
		Capped:         bsonutil.ToBool(result["capped"]),
	}
	return stats, nil
}

// GetDatabaseStats runs dbStats for db.
func GetDatabaseStats(ctx context.Context, db *mongo.Database) (*types.DatabaseStats, error) {
	var result bson.M
	err := db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	return &types.DatabaseStats{
		Database:    db.Name(),
		Collections: bsonutil.Int64Field(result, "collections"),
		Objects:     bsonutil.Int64Field(result, "objects"),
		AvgObjSize:  bsonutil.Float64Field(result, "avgObjSize"),
		DataSize:    bsonutil.Int64Field(result, "dataSize"),
		StorageSize: bsonutil.Int64Field(result, "storageSize"),
		Indexes:     bsonutil.Int64Field(result, "indexes"),
		IndexSize:   bsonutil.Int64Field(result, "indexSize"),
	}, nil
}
