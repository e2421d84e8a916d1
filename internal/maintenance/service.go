// Package maintenance implements the out-of-band data maintenance routines:
// index management, backup and restore, retention cleanup and health checks.
// Every store access goes through an isolated operation, and every routine
// reports per-item results instead of failing as a whole.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/database"
	"github.com/peternagy/consultadmin/internal/entity"
	"github.com/peternagy/consultadmin/internal/operation"
	"github.com/peternagy/consultadmin/internal/performance"
	"github.com/peternagy/consultadmin/internal/types"
)

// allCollections labels operations that span the whole database.
const allCollections = "*"

var errGateBusy = errors.New("maintenance gate not acquired before deadline")

// Connector is the part of the connection manager maintenance needs.
type Connector interface {
	operation.Connector
	Initialize(ctx context.Context) error
	IsConnected() bool
	Status() types.ConnectionStatus
	DatabaseName() string
}

// Options tunes the cross-process maintenance lease.
type Options struct {
	// LeaseTTL is how long a lease outlives its last renewal. Zero means
	// core.DefaultMaintenanceTimeout.
	LeaseTTL time.Duration
	// Drain is waited after taking the lease so snapshots that started before
	// it can finish. Set it to the dashboard request timeout.
	Drain time.Duration
}

// Service runs maintenance routines. Destructive routines hold the gate
// exclusively plus the store lease; the others share the gate with dashboard
// reads.
type Service struct {
	conn   Connector
	runner *operation.Runner
	gate   *core.Gate
	perf   *performance.Collector
	log    zerolog.Logger
	opts   Options
	holder string
	now    func() time.Time
}

// NewService creates a maintenance service. runner must wrap conn.
func NewService(conn Connector, runner *operation.Runner, gate *core.Gate, perf *performance.Collector, log zerolog.Logger, opts Options) *Service {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = core.DefaultMaintenanceTimeout
	}
	return &Service{
		conn:   conn,
		runner: runner,
		gate:   gate,
		perf:   perf,
		log:    log,
		opts:   opts,
		holder: uuid.NewString(),
		now:    time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lockExclusive takes the gate exclusively and the store lease, then waits
// out the drain period. The returned func releases both.
func (s *Service) lockExclusive(ctx context.Context) (func(), types.ErrorKind, error) {
	if !s.gate.Lock(ctx) {
		return nil, types.ErrorUnknown, errGateBusy
	}

	lease := s.renewLease(ctx)
	if !lease.Success {
		s.gate.Unlock()
		return nil, lease.Error, errors.New(lease.Message)
	}

	release := func() {
		res := operation.Run(context.WithoutCancel(ctx), s.runner, "release_lease", database.LeaseCollection, func(ctx context.Context, db *mongo.Database) (struct{}, error) {
			return struct{}{}, database.ReleaseLease(ctx, db, s.holder)
		})
		if !res.Success {
			s.log.Warn().Str("error", res.Message).Msg("maintenance lease not released, it will expire")
		}
		s.gate.Unlock()
	}

	if s.opts.Drain > 0 {
		s.log.Info().Dur("drain", s.opts.Drain).Msg("waiting for in-flight dashboard reads")
		if err := sleepContext(ctx, s.opts.Drain); err != nil {
			release()
			return nil, types.ErrorUnknown, err
		}
	}
	return release, "", nil
}

// renewLease takes or extends the store lease for this service.
func (s *Service) renewLease(ctx context.Context) types.OperationResult[struct{}] {
	now := s.now()
	return operation.Run(ctx, s.runner, "acquire_lease", database.LeaseCollection, func(ctx context.Context, db *mongo.Database) (struct{}, error) {
		return struct{}{}, database.AcquireLease(ctx, db, s.holder, now, s.opts.LeaseTTL+s.opts.Drain)
	})
}

func (s *Service) keepLease(ctx context.Context) {
	if res := s.renewLease(ctx); !res.Success {
		s.log.Warn().Str("error", res.Message).Msg("failed to renew maintenance lease")
	}
}

// Initialize connects with retries.
func (s *Service) Initialize(ctx context.Context) types.OperationResult[types.ConnectionStatus] {
	if err := s.conn.Initialize(ctx); err != nil {
		return types.Failed[types.ConnectionStatus](core.Kind(err), err.Error())
	}
	return types.Succeeded(s.conn.Status())
}

func (s *Service) IsConnected() bool {
	return s.conn.IsConnected()
}

func (s *Service) GetConnectionStatus() types.ConnectionStatus {
	return s.conn.Status()
}

// GetDatabaseStats returns dbStats for the logical database.
func (s *Service) GetDatabaseStats(ctx context.Context) types.OperationResult[*types.DatabaseStats] {
	return operation.Run(ctx, s.runner, "db_stats", allCollections, database.GetDatabaseStats)
}

// GetCollectionStats returns collStats for one collection.
func (s *Service) GetCollectionStats(ctx context.Context, name string) types.OperationResult[*types.CollectionStats] {
	return operation.Run(ctx, s.runner, "collection_stats", name, func(ctx context.Context, db *mongo.Database) (*types.CollectionStats, error) {
		return database.GetCollectionStats(ctx, db, name)
	})
}

// CreateIndexes (re)creates the declared indexes of every entity.
func (s *Service) CreateIndexes(ctx context.Context) []types.IndexResult {
	if !s.gate.Enter(ctx) {
		return s.indexFailures(errGateBusy.Error())
	}
	defer s.gate.Leave()
	return s.createIndexes(ctx)
}

func (s *Service) createIndexes(ctx context.Context) []types.IndexResult {
	defs := entity.All()
	results := make([]types.IndexResult, 0, len(defs))
	for _, def := range defs {
		res := operation.Run(ctx, s.runner, "create_indexes", def.Collection, func(ctx context.Context, db *mongo.Database) ([]string, error) {
			return database.EnsureIndexes(ctx, db, def)
		})
		item := types.IndexResult{Entity: string(def.Kind), Collection: def.Collection, Status: types.StatusSuccess, Indexes: res.Data}
		if !res.Success {
			item.Status = types.StatusError
			item.Error = res.Message
		}
		results = append(results, item)
	}
	s.log.Info().Int("entities", len(results)).Int("failed", countIndexFailures(results)).Msg("indexes created")
	return results
}

func (s *Service) indexFailures(msg string) []types.IndexResult {
	defs := entity.All()
	results := make([]types.IndexResult, 0, len(defs))
	for _, def := range defs {
		results = append(results, types.IndexResult{Entity: string(def.Kind), Collection: def.Collection, Status: types.StatusError, Error: msg})
	}
	return results
}

// DropAllIndexes drops every non-_id index of every collection.
func (s *Service) DropAllIndexes(ctx context.Context) types.OperationResult[[]types.DropIndexResult] {
	release, kind, err := s.lockExclusive(ctx)
	if err != nil {
		return types.Failed[[]types.DropIndexResult](kind, err.Error())
	}
	defer release()

	names := operation.Run(ctx, s.runner, "list_collections", allCollections, database.CollectionNames)
	if !names.Success {
		return types.Failed[[]types.DropIndexResult](names.Error, names.Message)
	}

	results := make([]types.DropIndexResult, 0, len(names.Data))
	for _, name := range names.Data {
		res := operation.Run(ctx, s.runner, "drop_indexes", name, func(ctx context.Context, db *mongo.Database) (struct{}, error) {
			return struct{}{}, database.DropIndexes(ctx, db, name)
		})
		item := types.DropIndexResult{Collection: name, Status: types.StatusSuccess}
		if !res.Success {
			item.Status = types.StatusError
			item.Error = res.Message
		}
		results = append(results, item)
	}
	return types.Succeeded(results)
}

// BackupDatabase reads every document of every user collection into memory.
func (s *Service) BackupDatabase(ctx context.Context) types.OperationResult[types.Backup] {
	if !s.gate.Enter(ctx) {
		return types.Failed[types.Backup](types.ErrorUnknown, errGateBusy.Error())
	}
	defer s.gate.Leave()

	res := operation.Run(ctx, s.runner, "backup", allCollections, func(ctx context.Context, db *mongo.Database) (types.Backup, error) {
		names, err := database.CollectionNames(ctx, db)
		if err != nil {
			return types.Backup{}, err
		}
		backup := types.Backup{
			Database:    db.Name(),
			CreatedAt:   s.now().UTC(),
			Collections: make(map[string][]bson.M, len(names)),
		}
		for _, name := range names {
			docs, err := database.AllDocuments(ctx, db, name)
			if err != nil {
				return types.Backup{}, err
			}
			backup.Collections[name] = docs
		}
		return backup, nil
	})
	if res.Success {
		s.log.Info().Int("collections", len(res.Data.Collections)).Msg("backup complete")
	}
	return res
}

// RestoreDatabase replaces the contents of each collection in backup with
// the backed-up documents. Collections not in backup are left alone.
func (s *Service) RestoreDatabase(ctx context.Context, backup types.Backup) types.OperationResult[[]types.RestoreResult] {
	release, kind, err := s.lockExclusive(ctx)
	if err != nil {
		return types.Failed[[]types.RestoreResult](kind, err.Error())
	}
	defer release()

	names := make([]string, 0, len(backup.Collections))
	for name := range backup.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]types.RestoreResult, 0, len(names))
	for _, name := range names {
		docs := backup.Collections[name]
		if err := database.ValidateCollectionName(name); err != nil {
			results = append(results, types.RestoreResult{
				Collection: name,
				Status:     types.StatusError,
				Error:      err.Error(),
				ErrorKind:  types.ErrorValidation,
			})
			continue
		}

		s.keepLease(ctx)
		res := operation.Run(ctx, s.runner, "restore", name, func(ctx context.Context, db *mongo.Database) (int, error) {
			return database.ReplaceDocuments(ctx, db, name, docs)
		})
		item := types.RestoreResult{Collection: name, Status: types.StatusSuccess, Count: res.Data}
		if !res.Success {
			item.Status = types.StatusError
			item.Error = res.Message
			item.ErrorKind = res.Error
		}
		results = append(results, item)
	}
	s.log.Info().Int("collections", len(results)).Msg("restore complete")
	return types.Succeeded(results)
}

// CleanupOldData applies the retention rules. Failures are reported as
// entries; a failure to start at all is a single cleanup_error entry.
func (s *Service) CleanupOldData(ctx context.Context) (result types.OperationResult[[]types.CleanupResult]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = cleanupFailure(types.ErrorUnknown, fmt.Sprintf("panic: %v", rec))
		}
	}()

	release, kind, err := s.lockExclusive(ctx)
	if err != nil {
		return cleanupFailure(kind, err.Error())
	}
	defer release()

	now := s.now()
	rules := entity.RetentionRules()
	results := make([]types.CleanupResult, 0, len(rules))
	for _, rule := range rules {
		s.keepLease(ctx)
		res := operation.Run(ctx, s.runner, rule.Operation, rule.Collection, func(ctx context.Context, db *mongo.Database) (int64, error) {
			return database.DeleteMatching(ctx, db, rule.Collection, rule.Filter(now))
		})
		item := types.CleanupResult{Operation: rule.Operation, Collection: rule.Collection, DeletedCount: res.Data}
		if !res.Success {
			item.Error = res.Message
		}
		results = append(results, item)
	}
	s.log.Info().Int64("deleted", totalDeleted(results)).Msg("cleanup complete")
	return types.Succeeded(results)
}

func cleanupFailure(kind types.ErrorKind, msg string) types.OperationResult[[]types.CleanupResult] {
	return types.OperationResult[[]types.CleanupResult]{
		Success: false,
		Data:    []types.CleanupResult{{Operation: types.CleanupErrorOperation, Error: msg}},
		Error:   kind,
		Message: msg,
	}
}

// HealthCheck reports connection state and, when connected, database
// statistics and the outcome of re-creating indexes.
func (s *Service) HealthCheck(ctx context.Context) types.HealthReport {
	report := types.HealthReport{
		Connected: s.conn.IsConnected(),
		Status:    s.conn.Status(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Runtime:   s.perf.Sample(),
	}
	if !report.Connected {
		return report
	}

	if !s.gate.Enter(ctx) {
		report.Error = errGateBusy.Error()
		return report
	}
	defer s.gate.Leave()

	var problems []string
	stats := operation.Run(ctx, s.runner, "db_stats", allCollections, database.GetDatabaseStats)
	if stats.Success {
		report.Database = stats.Data
	} else {
		problems = append(problems, "database stats: "+stats.Message)
	}

	report.Indexes = s.createIndexes(ctx)
	for _, idx := range report.Indexes {
		if idx.Status == types.StatusError {
			problems = append(problems, idx.Collection+" indexes: "+idx.Error)
		}
	}
	report.Error = strings.Join(problems, "; ")
	return report
}

func countIndexFailures(results []types.IndexResult) int {
	n := 0
	for _, r := range results {
		if r.Status == types.StatusError {
			n++
		}
	}
	return n
}

func totalDeleted(results []types.CleanupResult) int64 {
	var n int64
	for _, r := range results {
		n += r.DeletedCount
	}
	return n
}
