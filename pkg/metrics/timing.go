// Package metrics collects in-memory timing statistics for taxview's hot
// paths (loading, tree rebuilds, layout, search, export).
//
// Collection is enabled by default and can be disabled via
// TAXVIEW_METRICS=0.
//
//	func BuildTree(...) *model.Node {
//	    defer metrics.Timer(metrics.TreeBuild)()
//	    ...
//	}
package metrics

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("TAXVIEW_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool { return enabled.Load() }

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric tracks timing statistics for a named operation.
// All methods are safe for concurrent use.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	if ns <= 0 {
		ns = 1
	}

	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

func (s TimingStats) String() string {
	return fmt.Sprintf("%s: n=%d avg=%.3fms max=%.3fms total=%.3fms",
		s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
}

// Timer returns a function that records elapsed time when called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Global timing metrics.
var (
	DataLoad      = newTimingMetric("data_load")
	JSONParsing   = newTimingMetric("json_parsing")
	TreeBuild     = newTimingMetric("tree_build")
	LayoutRender  = newTimingMetric("layout_render")
	SearchSuggest = newTimingMetric("search_suggest")
	Export        = newTimingMetric("export")
	UIRender      = newTimingMetric("ui_render")
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		DataLoad,
		JSONParsing,
		TreeBuild,
		LayoutRender,
		SearchSuggest,
		Export,
		UIRender,
	}
}

// ResetAll resets all timing metrics.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for metrics that have data.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// Summary renders AllTimingStats one metric per line.
func Summary() string {
	var sb strings.Builder
	for _, s := range AllTimingStats() {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
