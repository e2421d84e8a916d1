package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/consultadmin/internal/entity"
)

// EnsureIndexes creates the declared indexes of def. Creating an index that
// already exists with the same options is a no-op on the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database, def entity.Definition) ([]string, error) {
	if len(def.Indexes) == 0 {
		return []string{}, nil
	}
	names, err := db.Collection(def.Collection).Indexes().CreateMany(ctx, def.Indexes)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes on %s: %w", def.Collection, err)
	}
	return names, nil
}

// DropIndexes drops every index of a collection except _id.
func DropIndexes(ctx context.Context, db *mongo.Database, collName string) error {
	if err := ValidateCollectionName(collName); err != nil {
		return err
	}
	if _, err := db.Collection(collName).Indexes().DropAll(ctx); err != nil {
		return fmt.Errorf("failed to drop indexes on %s: %w", collName, err)
	}
	return nil
}
