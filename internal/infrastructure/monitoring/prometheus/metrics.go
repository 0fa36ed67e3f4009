package prometheus

import (
	"time"
)

// EngineMetrics holds the engine's metrics.  It implements the forcefield
// set's Observer and the session manager's Metrics.
type EngineMetrics struct {
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	InvalidationsTotal     CounterVec
	EvaluationsTotal       CounterVec
	EvaluationDuration     HistogramVec
	RollbacksTotal         CounterVec
	ForceFields            GaugeVec
	ActiveSessions         GaugeVec
	SnapshotOpsTotal       CounterVec
	SnapshotDuration       HistogramVec
	SnapshotSize           HistogramVec
	EventsPublishedTotal   CounterVec
	EventPublishErrorTotal CounterVec
}

var (
	DefaultEvaluationBuckets = []float64{.00001, .0001, .001, .01, .1, 1}
	DefaultSnapshotBuckets   = []float64{.001, .005, .01, .05, .1, .5, 1, 5}
	DefaultSizeBuckets       = []float64{1 << 10, 1 << 14, 1 << 18, 1 << 22, 1 << 26}
)

// NewEngineMetrics registers every engine metric with collector.
func NewEngineMetrics(collector MetricsCollector) *EngineMetrics {
	return &EngineMetrics{
		CacheHitsTotal:         collector.RegisterCounter("energy_cache_hits_total", "Energy lookups answered from the cache"),
		CacheMissesTotal:       collector.RegisterCounter("energy_cache_misses_total", "Energy lookups that had to evaluate"),
		InvalidationsTotal:     collector.RegisterCounter("energy_cache_invalidations_total", "Cache entries dropped after a forcefield changed"),
		EvaluationsTotal:       collector.RegisterCounter("energy_evaluations_total", "Energy queries served"),
		EvaluationDuration:     collector.RegisterHistogram("energy_evaluation_duration_seconds", "Energy query latency", DefaultEvaluationBuckets),
		RollbacksTotal:         collector.RegisterCounter("mutation_rollbacks_total", "Forcefield set mutations rolled back", "operation"),
		ForceFields:            collector.RegisterGauge("forcefields", "Forcefields held by the most recently mutated set"),
		ActiveSessions:         collector.RegisterGauge("sessions_active", "Open sessions"),
		SnapshotOpsTotal:       collector.RegisterCounter("snapshot_operations_total", "Snapshot store operations", "operation", "status"),
		SnapshotDuration:       collector.RegisterHistogram("snapshot_duration_seconds", "Snapshot store latency", DefaultSnapshotBuckets, "operation"),
		SnapshotSize:           collector.RegisterHistogram("snapshot_size_bytes", "Encoded snapshot size", DefaultSizeBuckets),
		EventsPublishedTotal:   collector.RegisterCounter("events_published_total", "Change events published", "kind"),
		EventPublishErrorTotal: collector.RegisterCounter("event_publish_errors_total", "Failed event publications"),
	}
}

func (m *EngineMetrics) CacheHit()  { m.CacheHitsTotal.WithLabelValues().Inc() }
func (m *EngineMetrics) CacheMiss() { m.CacheMissesTotal.WithLabelValues().Inc() }

func (m *EngineMetrics) Invalidated(n int) {
	if n > 0 {
		m.InvalidationsTotal.WithLabelValues().Add(float64(n))
	}
}

func (m *EngineMetrics) Evaluated(d time.Duration) {
	m.EvaluationsTotal.WithLabelValues().Inc()
	m.EvaluationDuration.WithLabelValues().Observe(d.Seconds())
}

func (m *EngineMetrics) RolledBack(op string)  { m.RollbacksTotal.WithLabelValues(op).Inc() }
func (m *EngineMetrics) ForceFieldCount(n int) { m.ForceFields.WithLabelValues().Set(float64(n)) }
func (m *EngineMetrics) SessionsActive(n int)  { m.ActiveSessions.WithLabelValues().Set(float64(n)) }

// SnapshotOp records one snapshot store call.  size is ignored for failed
// calls and for calls that move no data.
func (m *EngineMetrics) SnapshotOp(op string, d time.Duration, size int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SnapshotOpsTotal.WithLabelValues(op, status).Inc()
	m.SnapshotDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil && size > 0 {
		m.SnapshotSize.WithLabelValues().Observe(float64(size))
	}
}

// EventsPublished records a publish attempt of events of the given kinds.
func (m *EngineMetrics) EventsPublished(kinds []string, err error) {
	if err != nil {
		m.EventPublishErrorTotal.WithLabelValues().Inc()
		return
	}
	for _, k := range kinds {
		m.EventsPublishedTotal.WithLabelValues(k).Inc()
	}
}

//Personal.AI order the ending
