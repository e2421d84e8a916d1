// Package analytics builds the admin dashboard snapshot.
package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/database"
	"github.com/peternagy/consultadmin/internal/entity"
	"github.com/peternagy/consultadmin/internal/types"
)

const (
	// RecentWindow is the trailing window of the recentLeads and recentB2BLeads counters.
	RecentWindow = 7 * 24 * time.Hour
	// RecentListLimit caps each recency list.
	RecentListLimit = 5
)

// Distributions computed for every snapshot.
var (
	leadStatus        = database.Distribution{Field: "status"}
	universityCountry = database.Distribution{Field: "country"}
	updateType        = database.Distribution{Field: "type"}
	b2bStatus         = database.Distribution{Field: "status", SumField: "expectedValue"}
	storyCountry      = database.Distribution{Field: "country", FeaturedField: "featured"}
	userRole          = database.Distribution{Field: "role", ActiveField: "isActive"}
)

// Options tunes an Engine.
type Options struct {
	// RequestTimeout bounds one whole snapshot. Zero means no bound.
	RequestTimeout time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Engine aggregates a DashboardSnapshot from a Store.
type Engine struct {
	store Store
	gate  *core.Gate
	log   zerolog.Logger
	opts  Options
}

// NewEngine creates an engine. Snapshots hold gate in shared mode.
func NewEngine(store Store, gate *core.Gate, log zerolog.Logger, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: store, gate: gate, log: log, opts: opts}
}

// Snapshot returns a live snapshot, or the fallback snapshot when the store
// cannot be reached at all or destructive maintenance is running in this or
// another process. It never fails.
func (e *Engine) Snapshot(ctx context.Context) types.DashboardSnapshot {
	ctx, cancel := core.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	if e.gate.Busy() {
		e.log.Debug().Msg("waiting for maintenance to finish")
	}
	if !e.gate.Enter(ctx) {
		e.log.Warn().Msg("maintenance in progress, serving fallback snapshot")
		return Fallback()
	}
	defer e.gate.Leave()

	if err := e.store.Connect(ctx); err != nil {
		e.log.Warn().Err(err).Msg("store unreachable, serving fallback snapshot")
		return Fallback()
	}
	// A failed lease check does not block reads.
	if e.store.MaintenanceActive(ctx, e.opts.Now()).Or(false) {
		e.log.Warn().Msg("maintenance lease held, serving fallback snapshot")
		return Fallback()
	}

	start := time.Now()
	snap := e.collect(ctx)
	e.log.Info().
		Dur("took", time.Since(start)).
		Int64("total_leads", snap.TotalLeads).
		Msg("snapshot built")
	return snap
}

// totals holds the per-entity counters of one snapshot.
type totals map[entity.Kind]int64

func (e *Engine) collect(ctx context.Context) types.DashboardSnapshot {
	now := e.opts.Now()
	since := now.Add(-RecentWindow)

	var (
		g       errgroup.Group
		counts  = make([]int64, len(entity.All()))
		recentL int64
		recentB int64

		leads        []types.LeadSummary
		universities []types.UniversitySummary
		updates      []types.UpdateSummary
		stories      []types.SuccessStorySummary

		byStatus, byCountry, byType, b2b, byStory, byRole []types.GroupCount
	)

	// Every task writes only its own variable and never returns an error, so
	// Wait settles all of them.
	for i, def := range entity.All() {
		g.Go(func() error {
			counts[i] = e.store.Count(ctx, def.Kind).Or(0)
			return nil
		})
	}
	g.Go(func() error {
		recentL = e.store.CountSince(ctx, entity.Leads, since).Or(0)
		return nil
	})
	g.Go(func() error {
		recentB = e.store.CountSince(ctx, entity.B2BLeads, since).Or(0)
		return nil
	})
	g.Go(func() error {
		leads = e.store.RecentLeads(ctx, RecentListLimit).Or(nil)
		return nil
	})
	g.Go(func() error {
		universities = e.store.RecentUniversities(ctx, RecentListLimit).Or(nil)
		return nil
	})
	g.Go(func() error {
		updates = e.store.RecentUpdates(ctx, RecentListLimit).Or(nil)
		return nil
	})
	g.Go(func() error {
		stories = e.store.RecentSuccessStories(ctx, RecentListLimit).Or(nil)
		return nil
	})
	groups := []struct {
		kind entity.Kind
		dist database.Distribution
		out  *[]types.GroupCount
	}{
		{entity.Leads, leadStatus, &byStatus},
		{entity.Universities, universityCountry, &byCountry},
		{entity.Updates, updateType, &byType},
		{entity.B2BLeads, b2bStatus, &b2b},
		{entity.SuccessStories, storyCountry, &byStory},
		{entity.Users, userRole, &byRole},
	}
	for _, grp := range groups {
		g.Go(func() error {
			*grp.out = e.store.Group(ctx, grp.kind, grp.dist).Or(nil)
			return nil
		})
	}
	_ = g.Wait()

	t := make(totals, len(counts))
	for i, def := range entity.All() {
		t[def.Kind] = nonNegative(counts[i])
	}

	snap := types.DashboardSnapshot{
		TotalLeads:          t[entity.Leads],
		TotalUniversities:   t[entity.Universities],
		TotalB2BLeads:       t[entity.B2BLeads],
		TotalSuccessStories: t[entity.SuccessStories],
		TotalUpdates:        t[entity.Updates],
		TotalUsers:          t[entity.Users],
		TotalDestinations:   t[entity.Destinations],

		RecentLeads:    clampRecent(recentL, t[entity.Leads]),
		RecentB2BLeads: clampRecent(recentB, t[entity.B2BLeads]),

		RecentLeadsList:      nonNil(leads),
		RecentUniversities:   nonNil(universities),
		RecentUpdates:        nonNil(updates),
		RecentSuccessStories: nonNil(stories),

		LastUpdated: now.UTC().Format(time.RFC3339),
		DataSource:  types.SourceDatabase,
	}
	snap.Analytics = buildAnalytics(t, snap.RecentLeads, snap.RecentB2BLeads, distributions{
		leadStatus:        byStatus,
		universityCountry: byCountry,
		updateType:        byType,
		b2b:               b2b,
		successStory:      byStory,
		userRole:          byRole,
	})
	return snap
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// clampRecent keeps recent within [0, total]; the two counts are read at
// different instants.
func clampRecent(recent, total int64) int64 {
	return min(nonNegative(recent), total)
}
