package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCheckFilesTotal      = "depfence.check.files.total"
	metricCheckImportsTotal    = "depfence.check.imports.total"
	metricCheckViolationsTotal = "depfence.check.violations.total"
	metricCheckDuration        = "depfence.check.duration.seconds"
	metricCacheHitsTotal       = "depfence.scan.cache.hits.total"
	metricCacheMissesTotal     = "depfence.scan.cache.misses.total"

	attrKind = "kind"
)

// CheckMetrics holds OTel instruments for boundary-check metrics.
type CheckMetrics struct {
	filesTotal      metric.Int64Counter
	importsTotal    metric.Int64Counter
	violationsTotal metric.Int64Counter
	checkDuration   metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// CheckStats holds the statistics of a single boundary-check run,
// decoupled from the checker and scanner types.
type CheckStats struct {
	Files            int64
	Imports          int64
	Duration         time.Duration
	CacheHits        int64
	CacheMisses      int64
	ViolationsByKind map[string]int64
}

// NewCheckMetrics creates boundary-check metric instruments from the given meter.
func NewCheckMetrics(mt metric.Meter) (*CheckMetrics, error) {
	b := newMetricBuilder(mt)

	cm := &CheckMetrics{
		filesTotal:      b.counter(metricCheckFilesTotal, "Total files checked", "{file}"),
		importsTotal:    b.counter(metricCheckImportsTotal, "Total governed imports checked", "{import}"),
		violationsTotal: b.counter(metricCheckViolationsTotal, "Total violations found by kind", "{violation}"),
		checkDuration:   b.histogram(metricCheckDuration, "Boundary check duration in seconds", "s", durationBucketBoundaries...),
		cacheHits:       b.counter(metricCacheHitsTotal, "Scan cache hits", "{hit}"),
		cacheMisses:     b.counter(metricCacheMissesTotal, "Scan cache misses", "{miss}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return cm, nil
}

// RecordRun records the statistics of a completed boundary check.
// Safe to call on a nil receiver (no-op).
func (cm *CheckMetrics) RecordRun(ctx context.Context, stats CheckStats) {
	if cm == nil {
		return
	}

	cm.filesTotal.Add(ctx, stats.Files)
	cm.importsTotal.Add(ctx, stats.Imports)
	cm.checkDuration.Record(ctx, stats.Duration.Seconds())
	cm.cacheHits.Add(ctx, stats.CacheHits)
	cm.cacheMisses.Add(ctx, stats.CacheMisses)

	for kind, count := range stats.ViolationsByKind {
		cm.violationsTotal.Add(ctx, count, metric.WithAttributes(
			attribute.String(attrKind, kind),
		))
	}
}
