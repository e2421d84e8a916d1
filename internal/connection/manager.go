// Package connection owns the process-wide MongoDB client.
package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/credential"
	"github.com/peternagy/consultadmin/internal/types"
)

// DefaultDatabase is used when neither the configuration nor the URI names a database.
const DefaultDatabase = "consultadmin"

const (
	appName            = "consultadmin"
	connectKey         = "connect"
	breakerFailures    = 5
	breakerOpenTimeout = 30 * time.Second
	initRetries        = 4
)

// Config describes how to reach the store.
type Config struct {
	URI            string
	Database       string // overrides the database in the URI path
	ConnectTimeout time.Duration
}

// DialFunc opens and verifies a client for uri.
type DialFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// Option customises a Manager.
type Option func(*Manager)

// WithDialer replaces the function used to open clients.
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

// WithBreakerSettings replaces the circuit breaker guarding connect attempts.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(m *Manager) { m.breakerSettings = st }
}

// Manager lazily connects on first use and caches the client. Concurrent
// first-time callers share a single in-flight attempt.
type Manager struct {
	cfg    Config
	log    zerolog.Logger
	dial   DialFunc
	target credential.Target
	// uriErr is set when the configured URI is missing or does not parse.
	uriErr error

	group           singleflight.Group
	breakerSettings gobreaker.Settings
	breaker         *gobreaker.CircuitBreaker[*mongo.Client]

	mu     sync.RWMutex
	client *mongo.Client
	state  types.ConnectionState
}

// NewManager creates a manager. It does not touch the network.
func NewManager(cfg Config, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:   cfg,
		log:   log,
		dial:  Dial,
		state: types.StateUninitialized,
		breakerSettings: gobreaker.Settings{
			Name:        "mongodb-connect",
			MaxRequests: 1,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.breakerSettings.OnStateChange = m.onBreakerChange
	m.breaker = gobreaker.NewCircuitBreaker[*mongo.Client](m.breakerSettings)

	switch {
	case cfg.URI == "":
		m.uriErr = &core.ConnectionError{Reason: "connection uri is not configured"}
	default:
		target, err := credential.ParseTarget(cfg.URI)
		if err != nil {
			m.uriErr = &core.ConnectionError{Reason: "connection uri is invalid", Err: err}
			log.Error().Str("uri", credential.RedactURI(cfg.URI)).Err(err).Msg("connection uri is invalid")
		}
		m.target = target
	}
	return m
}

// Dial connects to uri and pings the primary.
func Dial(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName(appName))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return client, nil
}

// Connect returns the cached client, connecting first if necessary.
// All failures are *core.ConnectionError.
func (m *Manager) Connect(ctx context.Context) (*mongo.Client, error) {
	if client := m.cached(); client != nil {
		return client, nil
	}
	if m.uriErr != nil {
		return nil, m.uriErr
	}

	ch := m.group.DoChan(connectKey, func() (any, error) {
		return m.connect(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, &core.ConnectionError{Reason: "gave up waiting for connection", Err: ctx.Err()}
	}
}

// connect performs one attempt. It outlives the caller that started it so
// other waiters are not failed by that caller's cancellation.
func (m *Manager) connect(ctx context.Context) (*mongo.Client, error) {
	if client := m.cached(); client != nil {
		return client, nil
	}
	m.setState(types.StateConnecting)

	start := time.Now()
	client, err := m.breaker.Execute(func() (*mongo.Client, error) {
		dialCtx, cancel := core.WithTimeout(context.WithoutCancel(ctx), m.cfg.ConnectTimeout)
		defer cancel()
		return m.dial(dialCtx, m.cfg.URI)
	})
	if err != nil {
		m.setState(types.StateDisconnected)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &core.ConnectionError{Reason: "circuit open after repeated connect failures", Err: err}
		}
		m.log.Warn().Err(err).Str("host", m.target.HostList()).Dur("took", time.Since(start)).Msg("connect failed")
		return nil, &core.ConnectionError{Reason: "connect failed", Err: err}
	}

	m.mu.Lock()
	m.client = client
	m.state = types.StateConnected
	m.mu.Unlock()

	m.log.Info().Str("host", m.target.HostList()).Str("database", m.DatabaseName()).Dur("took", time.Since(start)).Msg("connected")
	return client, nil
}

// Database returns the logical database handle, connecting first if necessary.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := m.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(m.DatabaseName()), nil
}

// Initialize connects with bounded exponential backoff. Configuration
// errors are not retried.
func (m *Manager) Initialize(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		_, err := m.Connect(ctx)
		if err == nil {
			return nil
		}
		if m.uriErr != nil || errors.Is(err, gobreaker.ErrOpenState) {
			return backoff.Permanent(err)
		}
		m.log.Debug().Int("attempt", attempt).Err(err).Msg("initialize retry")
		return err
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, initRetries), ctx))
}

// IsConnected reports whether a client is cached. It does not ping, so it
// stays true if the server becomes unreachable after connecting.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == types.StateConnected
}

// Status describes the connection without touching the network.
func (m *Manager) Status() types.ConnectionStatus {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()
	return types.ConnectionStatus{
		State:    state,
		Host:     m.target.HostList(),
		Database: m.DatabaseName(),
	}
}

// DatabaseName is the configured override, else the URI path database, else DefaultDatabase.
func (m *Manager) DatabaseName() string {
	switch {
	case m.cfg.Database != "":
		return m.cfg.Database
	case m.target.Database != "":
		return m.target.Database
	default:
		return DefaultDatabase
	}
}

// Close disconnects the cached client, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	if m.state != types.StateUninitialized {
		m.state = types.StateDisconnected
	}
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *Manager) cached() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Manager) setState(s types.ConnectionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) onBreakerChange(name string, from, to gobreaker.State) {
	m.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
}
