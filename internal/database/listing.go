// Package database holds the MongoDB primitives used by the analytics and
// maintenance services. Every function works on a *mongo.Database handed in
// by the caller and honours the caller's context.
package database

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionNames returns the user collections of db sorted by name.
// System collections and views are excluded.
func CollectionNames(ctx context.Context, db *mongo.Database) ([]string, error) {
	filter := bson.D{{Key: "type", Value: "collection"}}
	names, err := db.ListCollectionNames(ctx, filter, options.ListCollections().SetNameOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if IsSystemCollection(name) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
