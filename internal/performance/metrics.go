// Package performance samples Go runtime statistics for health reports.
package performance

import (
	"runtime"
	"time"

	"github.com/peternagy/consultadmin/internal/types"
)

// Collector samples runtime metrics relative to its creation time.
type Collector struct {
	startTime time.Time
}

// NewCollector creates a collector whose uptime starts now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Sample returns current runtime metrics.
func (c *Collector) Sample() *types.RuntimeMetrics {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// PauseNs is a circular buffer of recent GC pause times
	var lastGCPause uint64
	if memStats.NumGC > 0 {
		lastGCPause = memStats.PauseNs[(memStats.NumGC+255)%256]
	}

	return &types.RuntimeMetrics{
		HeapAlloc:     memStats.HeapAlloc,
		HeapSys:       memStats.HeapSys,
		Goroutines:    runtime.NumGoroutine(),
		NumGC:         memStats.NumGC,
		LastGCPauseNs: lastGCPause,
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}
}
