// Integration tests that run against real MongoDB using testcontainers.
//
// Run with: go test -tags=integration ./internal/...

//go:build integration

package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/peternagy/consultadmin/internal/analytics"
	"github.com/peternagy/consultadmin/internal/connection"
	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/database"
	"github.com/peternagy/consultadmin/internal/operation"
	"github.com/peternagy/consultadmin/internal/types"
)

func TestIntegration_SnapshotFromStore(t *testing.T) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err, "Failed to start MongoDB container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	log := zerolog.Nop()
	manager := connection.NewManager(connection.Config{URI: uri, Database: "consultadmin_test", ConnectTimeout: 10 * time.Second}, log)
	t.Cleanup(func() { _ = manager.Close(context.Background()) })

	db, err := manager.Database(ctx)
	require.NoError(t, err)

	now := time.Now().UTC()
	leads := make([]interface{}, 0, 10)
	for i := 0; i < 9; i++ {
		leads = append(leads, bson.M{"name": "lead", "email": "l@example.com", "status": "new", "createdAt": now.Add(-48 * time.Hour), "updatedAt": now})
	}
	leads = append(leads, bson.M{"name": "old lead", "email": "o@example.com", "status": "contacted", "createdAt": now.Add(-30 * 24 * time.Hour), "updatedAt": now})
	_, err = db.Collection("leads").InsertMany(ctx, leads)
	require.NoError(t, err)
	_, err = db.Collection("universities").InsertMany(ctx, []interface{}{
		bson.M{"name": "Fudan", "country": "China", "updatedAt": now},
		bson.M{"name": "Tsinghua", "country": "China", "updatedAt": now.Add(-time.Hour)},
	})
	require.NoError(t, err)

	runner := operation.NewRunner(manager, log, 10*time.Second)
	engine := analytics.NewEngine(analytics.NewMongoStore(manager, runner), core.NewGate(), log, analytics.Options{RequestTimeout: 30 * time.Second})

	snap := engine.Snapshot(ctx)

	assert.Equal(t, types.SourceDatabase, snap.DataSource)
	assert.Equal(t, int64(10), snap.TotalLeads)
	assert.Equal(t, int64(2), snap.TotalUniversities)
	assert.Equal(t, int64(0), snap.TotalB2BLeads)
	assert.Equal(t, int64(9), snap.RecentLeads)
	assert.Equal(t, []types.GroupCount{{ID: "new", Count: 9}, {ID: "contacted", Count: 1}}, snap.Analytics.LeadStatusDistribution)
	assert.Equal(t, []types.GroupCount{{ID: "China", Count: 2}}, snap.Analytics.UniversityCountryDistribution)
	assert.Equal(t, 0.0, snap.Analytics.ConversionRate)
	assert.False(t, snap.Analytics.DataHealth["hasB2BLeads"])
	assert.True(t, snap.Analytics.DataHealth["hasLeads"])

	require.Len(t, snap.RecentUniversities, 2)
	assert.Equal(t, "Fudan", snap.RecentUniversities[0].Name)
	assert.Len(t, snap.RecentLeadsList, 5)

	// A maintenance lease taken by another process switches to the fallback.
	require.NoError(t, database.AcquireLease(ctx, db, "maintenance-cli", time.Now(), time.Minute))
	assert.Equal(t, types.SourceFallback, engine.Snapshot(ctx).DataSource)

	require.NoError(t, database.ReleaseLease(ctx, db, "maintenance-cli"))
	assert.Equal(t, types.SourceDatabase, engine.Snapshot(ctx).DataSource)
}

func TestIntegration_UnreachableStoreServesFallback(t *testing.T) {
	log := zerolog.Nop()
	manager := connection.NewManager(connection.Config{
		URI:            "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200",
		ConnectTimeout: 500 * time.Millisecond,
	}, log)
	runner := operation.NewRunner(manager, log, time.Second)
	engine := analytics.NewEngine(analytics.NewMongoStore(manager, runner), core.NewGate(), log, analytics.Options{RequestTimeout: 5 * time.Second})

	snap := engine.Snapshot(context.Background())

	assert.Equal(t, types.SourceFallback, snap.DataSource)
	assert.Equal(t, int64(10), snap.TotalLeads)
}
