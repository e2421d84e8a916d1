package core

import (
	"context"
	"time"
)

// DefaultOperationTimeout bounds a single isolated store operation.
const DefaultOperationTimeout = 5 * time.Second

// DefaultRequestTimeout bounds the whole dashboard aggregation.
const DefaultRequestTimeout = 15 * time.Second

// DefaultConnectTimeout is the default timeout for connection attempts.
const DefaultConnectTimeout = 10 * time.Second

// DefaultMaintenanceTimeout bounds bulk maintenance work such as backup and restore.
const DefaultMaintenanceTimeout = 5 * time.Minute

// WithTimeout derives a context bounded by d. A non-positive d leaves the
// parent deadline in charge.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
