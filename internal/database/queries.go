package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peternagy/consultadmin/internal/bsonutil"
	"github.com/peternagy/consultadmin/internal/entity"
	"github.com/peternagy/consultadmin/internal/types"
)

// UnknownGroup labels documents whose grouped field is missing or null.
const UnknownGroup = "unknown"

// Count returns the number of documents in a collection.
func Count(ctx context.Context, db *mongo.Database, collName string) (int64, error) {
	n, err := db.Collection(collName).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collName, err)
	}
	return n, nil
}

// CountSince returns the number of documents whose field is at or after since.
func CountSince(ctx context.Context, db *mongo.Database, collName, field string, since time.Time) (int64, error) {
	filter := bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: since}}}}
	n, err := db.Collection(collName).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent %s: %w", collName, err)
	}
	return n, nil
}

// Recent returns up to limit documents of def, most recently modified first,
// projected to the public fields and decoded into T.
func Recent[T any](ctx context.Context, db *mongo.Database, def entity.Definition, limit int64) ([]T, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: entity.FieldUpdatedAt, Value: -1}, {Key: entity.FieldID, Value: -1}}).
		SetLimit(limit)
	if len(def.PublicFields) > 0 {
		opts.SetProjection(def.Projection())
	}

	cursor, err := db.Collection(def.Collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent %s: %w", def.Collection, err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0, limit)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode recent %s: %w", def.Collection, err)
	}
	return out, nil
}

// Distribution describes a count-by-field aggregation.
type Distribution struct {
	Field string
	// SumField, when set, is summed into GroupCount.TotalValue.
	SumField string
	// FeaturedField and ActiveField, when set, count documents where the
	// boolean field is true into GroupCount.Featured and GroupCount.Active.
	FeaturedField string
	ActiveField   string
}

// Pipeline builds the $group and $sort stages.
func (d Distribution) Pipeline() mongo.Pipeline {
	group := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + d.Field, UnknownGroup}}}},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}
	if d.SumField != "" {
		group = append(group, bson.E{Key: "totalValue", Value: bson.D{{Key: "$sum", Value: "$" + d.SumField}}})
	}
	if d.FeaturedField != "" {
		group = append(group, bson.E{Key: "featured", Value: countTrue(d.FeaturedField)})
	}
	if d.ActiveField != "" {
		group = append(group, bson.E{Key: "active", Value: countTrue(d.ActiveField)})
	}
	return mongo.Pipeline{
		{{Key: "$group", Value: group}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

func countTrue(field string) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$" + field, true}}}, 1, 0,
	}}}}}
}

// Group runs dist on a collection.
func Group(ctx context.Context, db *mongo.Database, collName string, dist Distribution) ([]types.GroupCount, error) {
	cursor, err := db.Collection(collName).Aggregate(ctx, dist.Pipeline())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s by %s: %w", collName, dist.Field, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s groups: %w", collName, err)
	}
	return dist.Decode(docs), nil
}

// Decode converts raw $group output into sorted GroupCounts. Group keys of
// any BSON type are rendered as strings; rows that collapse onto the same
// key are merged.
func (d Distribution) Decode(docs []bson.M) []types.GroupCount {
	index := make(map[string]int, len(docs))
	out := make([]types.GroupCount, 0, len(docs))
	for _, doc := range docs {
		id := UnknownGroup
		if raw, ok := doc["_id"]; ok && raw != nil {
			id = bsonutil.ToString(raw)
		}
		i, seen := index[id]
		if !seen {
			i = len(out)
			index[id] = i
			out = append(out, d.empty(id))
		}
		g := &out[i]
		g.Count += bsonutil.Int64Field(doc, "count")
		if g.TotalValue != nil {
			*g.TotalValue += bsonutil.Float64Field(doc, "totalValue")
		}
		if g.Featured != nil {
			*g.Featured += bsonutil.Int64Field(doc, "featured")
		}
		if g.Active != nil {
			*g.Active += bsonutil.Int64Field(doc, "active")
		}
	}
	SortGroups(out)
	return out
}

func (d Distribution) empty(id string) types.GroupCount {
	g := types.GroupCount{ID: id}
	if d.SumField != "" {
		g.TotalValue = new(float64)
	}
	if d.FeaturedField != "" {
		g.Featured = new(int64)
	}
	if d.ActiveField != "" {
		g.Active = new(int64)
	}
	return g
}

// SortGroups orders groups by count descending, then _id ascending.
func SortGroups(groups []types.GroupCount) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].ID < groups[j].ID
	})
}
