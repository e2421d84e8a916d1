// Package operation runs isolated units of work against the store. Every
// failure, including a panic, becomes a failed types.OperationResult.
package operation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/telemetry"
	"github.com/peternagy/consultadmin/internal/types"
)

// Connector hands out the logical database, connecting if necessary.
type Connector interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// Work is a unit of store work.
type Work[T any] func(ctx context.Context, db *mongo.Database) (T, error)

// Runner carries the shared dependencies of isolated operations.
type Runner struct {
	conn    Connector
	log     zerolog.Logger
	timeout time.Duration

	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRunner creates a runner. A non-positive timeout disables the per-operation bound.
func NewRunner(conn Connector, log zerolog.Logger, timeout time.Duration) *Runner {
	meter := otel.Meter(telemetry.InstrumentationName)
	var calls metric.Int64Counter = noop.Int64Counter{}
	if c, err := meter.Int64Counter("consultadmin.store.operations",
		metric.WithDescription("Isolated store operations by outcome"),
		metric.WithUnit("{operation}"),
	); err == nil {
		calls = c
	}
	var duration metric.Float64Histogram = noop.Float64Histogram{}
	if h, err := meter.Float64Histogram("consultadmin.store.operation.duration",
		metric.WithDescription("Duration of isolated store operations"),
		metric.WithUnit("s"),
	); err == nil {
		duration = h
	}
	return &Runner{
		conn:     conn,
		log:      log,
		timeout:  timeout,
		tracer:   otel.Tracer(telemetry.InstrumentationName),
		calls:    calls,
		duration: duration,
	}
}

// Timeout is the per-operation bound applied by Run.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Run executes work in isolation. If the database cannot be obtained the work
// is not run and the result carries ErrorConnection.
func Run[T any](ctx context.Context, r *Runner, op, collection string, work Work[T]) (result types.OperationResult[T]) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("db.system", "mongodb"),
		attribute.String("db.operation", op),
		attribute.String("db.collection", collection),
	))

	defer func() {
		if rec := recover(); rec != nil {
			result = types.Failed[T](types.ErrorUnknown, fmt.Sprintf("panic: %v", rec))
		}
		r.record(ctx, span, op, collection, time.Since(start), result.Success, result.Error, result.Message)
	}()

	db, err := r.conn.Database(ctx)
	if err != nil {
		return types.Failed[T](types.ErrorConnection, err.Error())
	}

	opCtx, cancel := core.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := work(opCtx, db)
	if err != nil {
		return types.Failed[T](core.Kind(err), err.Error())
	}
	return types.Succeeded(data)
}

// record emits the per-call log line, span status and metrics.
func (r *Runner) record(ctx context.Context, span trace.Span, op, collection string, took time.Duration, ok bool, kind types.ErrorKind, message string) {
	defer span.End()

	outcome := "success"
	if !ok {
		outcome = string(kind)
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("collection", collection),
		attribute.String("outcome", outcome),
	)
	r.calls.Add(ctx, 1, attrs)
	r.duration.Record(ctx, took.Seconds(), attrs)

	var ev *zerolog.Event
	if ok {
		ev = r.log.Info()
	} else {
		span.SetStatus(codes.Error, message)
		ev = r.log.Warn().Str("error_kind", string(kind)).Str("error", message)
	}
	ev.Str("operation", op).
		Str("collection", collection).
		Bool("success", ok).
		Dur("duration", took).
		Msg("store operation")
}
