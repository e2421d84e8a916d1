// Package handler provides the HTTP handlers of the admin API.
package handler

import (
	"context"
	"net/http"

	"github.com/peternagy/consultadmin/internal/api/response"
	"github.com/peternagy/consultadmin/internal/types"
)

// SnapshotSource produces dashboard snapshots. It never fails; store outages
// are reported through the snapshot's data source.
type SnapshotSource interface {
	Snapshot(ctx context.Context) types.DashboardSnapshot
}

// AnalyticsHandler serves the admin dashboard snapshot.
type AnalyticsHandler struct {
	source SnapshotSource
}

func NewAnalyticsHandler(source SnapshotSource) *AnalyticsHandler {
	return &AnalyticsHandler{source: source}
}

// GetSnapshot handles GET /api/admin/analytics.
func (h *AnalyticsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.source.Snapshot(r.Context()))
}
