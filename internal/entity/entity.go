// Package entity is the catalogue of record collections the admin core knows
// about: where each lives, how it is indexed, which fields are public and
// when its terminal records expire.
package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Kind names an entity type.
type Kind string

const (
	Leads          Kind = "leads"
	Universities   Kind = "universities"
	B2BLeads       Kind = "b2bLeads"
	SuccessStories Kind = "successStories"
	Updates        Kind = "updates"
	Users          Kind = "users"
	Destinations   Kind = "destinations"
)

// Common document fields.
const (
	FieldID        = "_id"
	FieldStatus    = "status"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Lead statuses that drive the derived metrics and retention.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusConverted = "converted"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
	StatusArchived  = "archived"
)

// Definition describes one entity's collection.
type Definition struct {
	Kind       Kind
	Collection string
	// HealthKey is the dataHealth map key reported on the dashboard.
	HealthKey string
	// PublicFields is the projection used for recency lists.
	PublicFields []string
	Indexes      []mongo.IndexModel
}

// Projection returns the public-field projection document.
func (d Definition) Projection() bson.D {
	proj := bson.D{}
	for _, f := range d.PublicFields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj
}

// IndexNames lists the names of the entity's declared indexes.
func (d Definition) IndexNames() []string {
	names := make([]string, 0, len(d.Indexes))
	for _, idx := range d.Indexes {
		if idx.Options != nil && idx.Options.Name != nil {
			names = append(names, *idx.Options.Name)
		}
	}
	return names
}

func index(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniqueIndex(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

var definitions = []Definition{
	{
		Kind:         Leads,
		Collection:   "leads",
		HealthKey:    "hasLeads",
		PublicFields: []string{"name", "email", "status", "interestedCountry", FieldCreatedAt},
		Indexes: []mongo.IndexModel{
			index("email_1", bson.D{{Key: "email", Value: 1}}),
			index("status_1_updatedAt_-1", bson.D{{Key: FieldStatus, Value: 1}, {Key: FieldUpdatedAt, Value: -1}}),
			index("createdAt_-1", bson.D{{Key: FieldCreatedAt, Value: -1}}),
			index("updatedAt_-1", bson.D{{Key: FieldUpdatedAt, Value: -1}}),
		},
	},
	{
		Kind:         Universities,
		Collection:   "universities",
		HealthKey:    "hasUniversities",
		PublicFields: []string{"name", "country", "city", FieldUpdatedAt},
		Indexes: []mongo.IndexModel{
			index("country_1", bson.D{{Key: "country", Value: 1}}),
			index("name_1", bson.D{{Key: "name", Value: 1}}),
			index("status_1_updatedAt_-1", bson.D{{Key: FieldStatus, Value: 1}, {Key: FieldUpdatedAt, Value: -1}}),
		},
	},
	{
		Kind:         B2BLeads,
		Collection:   "b2bleads",
		HealthKey:    "hasB2BLeads",
		PublicFields: []string{"companyName", "contactPerson", "status", FieldCreatedAt},
		Indexes: []mongo.IndexModel{
			index("status_1_updatedAt_-1", bson.D{{Key: FieldStatus, Value: 1}, {Key: FieldUpdatedAt, Value: -1}}),
			index("createdAt_-1", bson.D{{Key: FieldCreatedAt, Value: -1}}),
		},
	},
	{
		Kind:         SuccessStories,
		Collection:   "successstories",
		HealthKey:    "hasSuccessStories",
		PublicFields: []string{"studentName", "university", "country", "featured", FieldUpdatedAt},
		Indexes: []mongo.IndexModel{
			index("country_1", bson.D{{Key: "country", Value: 1}}),
			index("featured_1", bson.D{{Key: "featured", Value: 1}}),
			index("status_1_updatedAt_-1", bson.D{{Key: FieldStatus, Value: 1}, {Key: FieldUpdatedAt, Value: -1}}),
		},
	},
	{
		Kind:         Updates,
		Collection:   "updates",
		HealthKey:    "hasUpdates",
		PublicFields: []string{"title", "type", "status", FieldUpdatedAt},
		Indexes: []mongo.IndexModel{
			index("type_1", bson.D{{Key: "type", Value: 1}}),
			index("status_1_updatedAt_-1", bson.D{{Key: FieldStatus, Value: 1}, {Key: FieldUpdatedAt, Value: -1}}),
		},
	},
	{
		Kind:       Users,
		Collection: "users",
		HealthKey:  "hasUsers",
		Indexes: []mongo.IndexModel{
			uniqueIndex("email_1", bson.D{{Key: "email", Value: 1}}),
			index("role_1", bson.D{{Key: "role", Value: 1}}),
		},
	},
	{
		Kind:       Destinations,
		Collection: "destinations",
		HealthKey:  "hasDestinations",
		Indexes: []mongo.IndexModel{
			index("name_1", bson.D{{Key: "name", Value: 1}}),
			index("status_1_updatedAt_-1", bson.D{{Key: FieldStatus, Value: 1}, {Key: FieldUpdatedAt, Value: -1}}),
		},
	},
}

// All returns every known entity in a stable order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup finds the definition for kind.
func Lookup(kind Kind) (Definition, bool) {
	for _, d := range definitions {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}

// MustLookup is Lookup for kinds declared in this package.
func MustLookup(kind Kind) Definition {
	d, ok := Lookup(kind)
	if !ok {
		panic("entity: unknown kind " + string(kind))
	}
	return d
}

// CollectionOf returns the collection name for kind.
func CollectionOf(kind Kind) string {
	return MustLookup(kind).Collection
}

// =============================================================================
// Retention
// =============================================================================

// ArchivedContentMaxAge is how long archived content records are kept.
const ArchivedContentMaxAge = 30 * 24 * time.Hour

// ClosedLeadMaxAge is how long rejected or withdrawn leads are kept.
const ClosedLeadMaxAge = 365 * 24 * time.Hour

// RetentionRule deletes terminal-state records older than MaxAge.
type RetentionRule struct {
	Operation  string
	Collection string
	Statuses   []string
	MaxAge     time.Duration
}

// Cutoff is the last-modified instant before which matching records expire.
func (r RetentionRule) Cutoff(now time.Time) time.Time {
	return now.Add(-r.MaxAge)
}

// Filter selects the records the rule deletes at now.
func (r RetentionRule) Filter(now time.Time) bson.M {
	return bson.M{
		FieldStatus:    bson.M{"$in": r.Statuses},
		FieldUpdatedAt: bson.M{"$lt": r.Cutoff(now)},
	}
}

// RetentionRules lists the cleanup rules in execution order.
func RetentionRules() []RetentionRule {
	archived := []string{StatusArchived}
	closed := []string{StatusRejected, StatusWithdrawn}
	return []RetentionRule{
		{Operation: "delete_archived_universities", Collection: CollectionOf(Universities), Statuses: archived, MaxAge: ArchivedContentMaxAge},
		{Operation: "delete_archived_updates", Collection: CollectionOf(Updates), Statuses: archived, MaxAge: ArchivedContentMaxAge},
		{Operation: "delete_archived_success_stories", Collection: CollectionOf(SuccessStories), Statuses: archived, MaxAge: ArchivedContentMaxAge},
		{Operation: "delete_archived_destinations", Collection: CollectionOf(Destinations), Statuses: archived, MaxAge: ArchivedContentMaxAge},
		{Operation: "delete_closed_leads", Collection: CollectionOf(Leads), Statuses: closed, MaxAge: ClosedLeadMaxAge},
		{Operation: "delete_closed_b2b_leads", Collection: CollectionOf(B2BLeads), Statuses: closed, MaxAge: ClosedLeadMaxAge},
	}
}
