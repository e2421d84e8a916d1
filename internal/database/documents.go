package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AllDocuments reads every document of a collection in natural order.
func AllDocuments(ctx context.Context, db *mongo.Database, collName string) ([]bson.M, error) {
	cursor, err := db.Collection(collName).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collName, err)
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read %s: %w", collName, err)
	}
	return docs, nil
}

// ReplaceDocuments deletes every document in the collection and inserts docs.
// It returns the number of documents inserted.
func ReplaceDocuments(ctx context.Context, db *mongo.Database, collName string, docs []bson.M) (int, error) {
	coll := db.Collection(collName)
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return 0, fmt.Errorf("clear %s: %w", collName, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}
	res, err := coll.InsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", collName, err)
	}
	return len(res.InsertedIDs), nil
}

// DeleteMatching deletes the documents matching filter and returns how many
// were removed.
func DeleteMatching(ctx context.Context, db *mongo.Database, collName string, filter interface{}) (int64, error) {
	res, err := db.Collection(collName).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collName, err)
	}
	return res.DeletedCount, nil
}
