// Package types contains shared type definitions used across the consultadmin services.
package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// =============================================================================
// Connection Types
// =============================================================================

// ConnectionState is the lifecycle state of the process-wide store connection.
type ConnectionState string

const (
	StateUninitialized ConnectionState = "uninitialized"
	StateConnecting    ConnectionState = "connecting"
	StateConnected     ConnectionState = "connected"
	StateDisconnected  ConnectionState = "disconnected"
)

// ConnectionStatus describes the store connection without touching the network.
type ConnectionStatus struct {
	State    ConnectionState `json:"state"`
	Host     string          `json:"host"`     // comma separated host:port list, never credentials
	Database string          `json:"database"` // logical database name
}

// =============================================================================
// Operation Results
// =============================================================================

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	ErrorConnection ErrorKind = "ConnectionError"
	ErrorValidation ErrorKind = "ValidationError"
	ErrorUnknown    ErrorKind = "UnknownError"
)

// OperationResult is the structured outcome of an isolated store operation.
type OperationResult[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   ErrorKind `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Succeeded wraps data in a successful result.
func Succeeded[T any](data T) OperationResult[T] {
	return OperationResult[T]{Success: true, Data: data}
}

// Failed builds a failed result of the given kind.
func Failed[T any](kind ErrorKind, message string) OperationResult[T] {
	return OperationResult[T]{Success: false, Error: kind, Message: message}
}

// Or returns the result data on success and fallback otherwise.
func (r OperationResult[T]) Or(fallback T) T {
	if !r.Success {
		return fallback
	}
	return r.Data
}

// =============================================================================
// Dashboard Types
// =============================================================================

// DataSource tells consumers where a snapshot came from.
type DataSource string

const (
	SourceDatabase DataSource = "database"
	SourceFallback DataSource = "fallback"
)

// GroupCount is one group of a distribution. The optional aggregates are only
// present on the distributions that compute them.
type GroupCount struct {
	ID         string   `json:"_id" bson:"_id"`
	Count      int64    `json:"count" bson:"count"`
	TotalValue *float64 `json:"totalValue,omitempty" bson:"totalValue,omitempty"`
	Featured   *int64   `json:"featured,omitempty" bson:"featured,omitempty"`
	Active     *int64   `json:"active,omitempty" bson:"active,omitempty"`
}

// Analytics holds the distributions and derived metrics of a snapshot.
type Analytics struct {
	LeadStatusDistribution        []GroupCount    `json:"leadStatusDistribution"`
	UniversityCountryDistribution []GroupCount    `json:"universityCountryDistribution"`
	UpdateTypeDistribution        []GroupCount    `json:"updateTypeDistribution"`
	B2BLeadStats                  []GroupCount    `json:"b2bLeadStats"`
	SuccessStoryStats             []GroupCount    `json:"successStoryStats"`
	UserRoleStats                 []GroupCount    `json:"userRoleStats"`
	ConversionRate                float64         `json:"conversionRate"`
	ContactRate                   float64         `json:"contactRate"`
	TotalB2BValue                 float64         `json:"totalB2BValue"`
	LeadsGrowth                   string          `json:"leadsGrowth"`
	B2BGrowth                     string          `json:"b2bGrowth"`
	DataHealth                    map[string]bool `json:"dataHealth"`
}

// DashboardSnapshot is the payload of the admin analytics endpoint.
type DashboardSnapshot struct {
	TotalLeads          int64 `json:"totalLeads"`
	TotalUniversities   int64 `json:"totalUniversities"`
	TotalB2BLeads       int64 `json:"totalB2BLeads"`
	TotalSuccessStories int64 `json:"totalSuccessStories"`
	TotalUpdates        int64 `json:"totalUpdates"`
	TotalUsers          int64 `json:"totalUsers"`
	TotalDestinations   int64 `json:"totalDestinations"`

	RecentLeads    int64 `json:"recentLeads"`    // created in the trailing 7 days
	RecentB2BLeads int64 `json:"recentB2BLeads"` // created in the trailing 7 days

	RecentLeadsList      []LeadSummary         `json:"recentLeadsList"`
	RecentUniversities   []UniversitySummary   `json:"recentUniversities"`
	RecentUpdates        []UpdateSummary       `json:"recentUpdates"`
	RecentSuccessStories []SuccessStorySummary `json:"recentSuccessStories"`

	Analytics   Analytics  `json:"analytics"`
	LastUpdated string     `json:"lastUpdated"`
	DataSource  DataSource `json:"dataSource"`
}

// =============================================================================
// Public Record Summaries
// =============================================================================

// LeadSummary is the public projection of a lead.
type LeadSummary struct {
	ID                string    `json:"_id" bson:"_id"`
	Name              string    `json:"name" bson:"name"`
	Email             string    `json:"email" bson:"email"`
	Status            string    `json:"status" bson:"status"`
	InterestedCountry string    `json:"interestedCountry,omitempty" bson:"interestedCountry,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
}

// UniversitySummary is the public projection of a university.
type UniversitySummary struct {
	ID        string    `json:"_id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Country   string    `json:"country" bson:"country"`
	City      string    `json:"city,omitempty" bson:"city,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UpdateSummary is the public projection of a news/update entry.
type UpdateSummary struct {
	ID        string    `json:"_id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Type      string    `json:"type" bson:"type"`
	Status    string    `json:"status,omitempty" bson:"status,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// SuccessStorySummary is the public projection of a success story.
type SuccessStorySummary struct {
	ID          string    `json:"_id" bson:"_id"`
	StudentName string    `json:"studentName" bson:"studentName"`
	University  string    `json:"university" bson:"university"`
	Country     string    `json:"country" bson:"country"`
	Featured    bool      `json:"featured" bson:"featured"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// =============================================================================
// Statistics Types
// =============================================================================

// DatabaseStats contains dbStats output for the logical database.
type DatabaseStats struct {
	Database    string  `json:"database"`
	Collections int64   `json:"collections"`
	Objects     int64   `json:"objects"`
	AvgObjSize  float64 `json:"avgObjSize"`
	DataSize    int64   `json:"dataSize"`
	StorageSize int64   `json:"storageSize"`
	Indexes     int64   `json:"indexes"`
	IndexSize   int64   `json:"indexSize"`
}

// CollectionStats contains statistics about a MongoDB collection.
type CollectionStats struct {
	Namespace      string `json:"namespace"`      // Full namespace (db.collection)
	Count          int64  `json:"count"`          // Number of documents
	Size           int64  `json:"size"`           // Total uncompressed size of documents in bytes
	StorageSize    int64  `json:"storageSize"`    // Storage size on disk in bytes
	AvgObjSize     int64  `json:"avgObjSize"`     // Average document size in bytes
	IndexCount     int    `json:"indexCount"`     // Number of indexes
	TotalIndexSize int64  `json:"totalIndexSize"` // Total size of all indexes in bytes
	Capped         bool   `json:"capped"`
}

// =============================================================================
// Maintenance Types
// =============================================================================

// Item statuses reported by maintenance routines.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IndexResult is the outcome of (re)creating one entity's indexes.
type IndexResult struct {
	Entity     string   `json:"entity"`
	Collection string   `json:"collection"`
	Status     string   `json:"status"`
	Indexes    []string `json:"indexes,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// DropIndexResult is the outcome of dropping one collection's indexes.
type DropIndexResult struct {
	Collection string `json:"collection"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Backup is an in-memory copy of every collection, keyed by collection name.
type Backup struct {
	Database    string              `json:"database"`
	CreatedAt   time.Time           `json:"createdAt"`
	Collections map[string][]bson.M `json:"collections"`
}

// DocumentCounts returns the number of documents per collection.
func (b Backup) DocumentCounts() map[string]int {
	counts := make(map[string]int, len(b.Collections))
	for name, docs := range b.Collections {
		counts[name] = len(docs)
	}
	return counts
}

// RestoreResult is the outcome of restoring one collection.
type RestoreResult struct {
	Collection string    `json:"collection"`
	Status     string    `json:"status"`
	Count      int       `json:"count"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
}

// CleanupErrorOperation names the entry recorded when cleanup fails unexpectedly.
const CleanupErrorOperation = "cleanup_error"

// CleanupResult is the outcome of one retention deletion.
type CleanupResult struct {
	Operation    string `json:"operation"`
	Collection   string `json:"collection,omitempty"`
	DeletedCount int64  `json:"deletedCount"`
	Error        string `json:"error,omitempty"`
}

// RuntimeMetrics holds process statistics attached to health reports.
type RuntimeMetrics struct {
	HeapAlloc     uint64 `json:"heapAlloc"`     // Bytes allocated and in use
	HeapSys       uint64 `json:"heapSys"`       // Bytes obtained from system
	Goroutines    int    `json:"goroutines"`    // Number of goroutines
	NumGC         uint32 `json:"numGC"`         // Number of completed GC cycles
	LastGCPauseNs uint64 `json:"lastGCPauseNs"` // Duration of last GC pause in nanoseconds
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// HealthReport is assembled on demand by the maintenance health check.
type HealthReport struct {
	Connected bool             `json:"connected"`
	Status    ConnectionStatus `json:"status"`
	Timestamp string           `json:"timestamp"`
	Database  *DatabaseStats   `json:"database,omitempty"`
	Indexes   []IndexResult    `json:"indexes,omitempty"`
	Runtime   *RuntimeMetrics  `json:"runtime,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// =============================================================================
// Archive Types
// =============================================================================

// ArchiveManifest describes a backup archive written to disk.
type ArchiveManifest struct {
	Version     string                      `json:"version"`
	Database    string                      `json:"database"`
	CreatedAt   time.Time                   `json:"createdAt"`
	Collections []ArchiveManifestCollection `json:"collections"`
}

// ArchiveManifestCollection describes one collection inside an archive.
type ArchiveManifestCollection struct {
	Name     string `json:"name"`
	DocCount int    `json:"docCount"`
}
