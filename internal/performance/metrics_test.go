package performance

import (
	"runtime"
	"testing"
	"time"
)

func TestCollectorSample(t *testing.T) {
	c := &Collector{startTime: time.Now().Add(-90 * time.Second)}
	runtime.GC()

	m := c.Sample()
	if m.Goroutines < 1 {
		t.Errorf("Goroutines = %d, want >= 1", m.Goroutines)
	}
	if m.HeapSys == 0 {
		t.Error("HeapSys = 0, want > 0")
	}
	if m.NumGC == 0 {
		t.Error("NumGC = 0 after runtime.GC")
	}
	if m.UptimeSeconds < 90 {
		t.Errorf("UptimeSeconds = %d, want >= 90", m.UptimeSeconds)
	}
}
