package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPairsCollected    = "gitpulse.pairs.collected.total"
	metricPairsReused       = "gitpulse.pairs.reused.total"
	metricPairsFailed       = "gitpulse.pairs.failed.total"
	metricCollectorDuration = "gitpulse.collector.duration.seconds"

	attrMetric = "metric"
)

// collectorDurationBoundaries covers sub-millisecond file counts up to
// multi-minute whole-tree scans on large repositories.
var collectorDurationBoundaries = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// RunMetrics holds the OTel instruments a collection run reports into.
type RunMetrics struct {
	pairsCollected    metric.Int64Counter
	pairsReused       metric.Int64Counter
	pairsFailed       metric.Int64Counter
	collectorDuration metric.Float64Histogram
}

// NewRunMetrics creates the run instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		pairsCollected: b.counter(metricPairsCollected,
			"Commit-metric pairs collected and persisted", "{pair}"),
		pairsReused: b.counter(metricPairsReused,
			"Commit-metric pairs skipped because a record already existed", "{pair}"),
		pairsFailed: b.counter(metricPairsFailed,
			"Commit-metric pairs whose collector failed", "{pair}"),
		collectorDuration: b.histogram(metricCollectorDuration,
			"Collector execution duration in seconds", "s", collectorDurationBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordCollected records one persisted pair and its collector duration.
func (rm *RunMetrics) RecordCollected(ctx context.Context, metricName string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrMetric, metricName))

	rm.pairsCollected.Add(ctx, 1, attrs)
	rm.collectorDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordReused records one pair satisfied from the store.
func (rm *RunMetrics) RecordReused(ctx context.Context, metricName string) {
	rm.pairsReused.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMetric, metricName)))
}

// RecordFailed records one pair whose collector returned an error.
func (rm *RunMetrics) RecordFailed(ctx context.Context, metricName string) {
	rm.pairsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMetric, metricName)))
}
