package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/entity"
	"github.com/peternagy/consultadmin/internal/operation"
	"github.com/peternagy/consultadmin/internal/performance"
	"github.com/peternagy/consultadmin/internal/types"
)

// unreachable is a connector whose store can never be reached.
type unreachable struct {
	initErr error
}

func (u *unreachable) Database(ctx context.Context) (*mongo.Database, error) {
	return nil, &core.ConnectionError{Reason: "server selection timed out"}
}

func (u *unreachable) Initialize(ctx context.Context) error { return u.initErr }
func (u *unreachable) IsConnected() bool                    { return false }
func (u *unreachable) DatabaseName() string                 { return "consultadmin" }

func (u *unreachable) Status() types.ConnectionStatus {
	return types.ConnectionStatus{State: types.StateDisconnected, Host: "db.internal:27017", Database: "consultadmin"}
}

func newTestService(conn Connector, gate *core.Gate) *Service {
	log := zerolog.Nop()
	runner := operation.NewRunner(conn, log, time.Second)
	svc := NewService(conn, runner, gate, performance.NewCollector(), log, Options{})
	svc.now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestInitializeReportsConnectionFailure(t *testing.T) {
	conn := &unreachable{initErr: &core.ConnectionError{Reason: "no reachable servers"}}
	svc := newTestService(conn, core.NewGate())

	res := svc.Initialize(t.Context())

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrorConnection, res.Error)
	assert.Contains(t, res.Message, "no reachable servers")
}

func TestCreateIndexesReportsEveryEntity(t *testing.T) {
	svc := newTestService(&unreachable{}, core.NewGate())

	results := svc.CreateIndexes(t.Context())

	require.Len(t, results, len(entity.All()))
	for _, r := range results {
		assert.Equal(t, types.StatusError, r.Status, r.Collection)
		assert.NotEmpty(t, r.Error)
	}
}

func TestBackupWithoutConnection(t *testing.T) {
	svc := newTestService(&unreachable{}, core.NewGate())

	res := svc.BackupDatabase(t.Context())

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrorConnection, res.Error)
}

func TestRestoreWithoutConnection(t *testing.T) {
	svc := newTestService(&unreachable{}, core.NewGate())

	res := svc.RestoreDatabase(t.Context(), types.Backup{Collections: map[string][]bson.M{"leads": {{"name": "a"}}}})

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrorConnection, res.Error)
}

func TestCleanupWithoutConnection(t *testing.T) {
	svc := newTestService(&unreachable{}, core.NewGate())

	res := svc.CleanupOldData(t.Context())

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrorConnection, res.Error)
	require.Len(t, res.Data, 1)
	assert.Equal(t, types.CleanupErrorOperation, res.Data[0].Operation)
	assert.NotEmpty(t, res.Data[0].Error)
}

func TestCleanupWaitsForGate(t *testing.T) {
	gate := core.NewGate()
	require.True(t, gate.Enter(t.Context()))
	defer gate.Leave()

	svc := newTestService(&unreachable{}, gate)
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	res := svc.CleanupOldData(ctx)

	assert.False(t, res.Success)
	require.Len(t, res.Data, 1)
	assert.Equal(t, types.CleanupErrorOperation, res.Data[0].Operation)
	assert.Equal(t, errGateBusy.Error(), res.Data[0].Error)
}

func TestDropAllIndexesWaitsForGate(t *testing.T) {
	gate := core.NewGate()
	require.True(t, gate.Enter(t.Context()))
	defer gate.Leave()

	svc := newTestService(&unreachable{}, gate)
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	res := svc.DropAllIndexes(ctx)

	assert.False(t, res.Success)
	assert.Equal(t, errGateBusy.Error(), res.Message)
}

func TestHealthCheckWhenDisconnected(t *testing.T) {
	svc := newTestService(&unreachable{}, core.NewGate())

	report := svc.HealthCheck(t.Context())

	assert.False(t, report.Connected)
	assert.Equal(t, types.StateDisconnected, report.Status.State)
	assert.Equal(t, "2025-01-15T09:00:00Z", report.Timestamp)
	assert.NotNil(t, report.Runtime)
	assert.Nil(t, report.Database)
	assert.Empty(t, report.Indexes)
	assert.Empty(t, report.Error)
}

func TestStatsWithoutConnection(t *testing.T) {
	svc := newTestService(&unreachable{}, core.NewGate())

	db := svc.GetDatabaseStats(t.Context())
	coll := svc.GetCollectionStats(t.Context(), "leads")

	assert.False(t, db.Success)
	assert.False(t, coll.Success)
	assert.Equal(t, types.ErrorConnection, db.Error)
	assert.Equal(t, types.ErrorConnection, coll.Error)
}

func TestExclusiveRoutineReleasesGateWhenLeaseFails(t *testing.T) {
	gate := core.NewGate()
	svc := newTestService(&unreachable{}, gate)

	res := svc.DropAllIndexes(t.Context())
	assert.False(t, res.Success)
	assert.Equal(t, types.ErrorConnection, res.Error)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	require.True(t, gate.Lock(ctx), "gate must be free again")
	gate.Unlock()
}
