package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ffengine/internal/domain/forcefields"
)

var _ forcefields.Observer = (*EngineMetrics)(nil)

func newTestEngineMetrics(t *testing.T) (*EngineMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	m := NewEngineMetrics(c)
	require.NotNil(t, m)
	return m, c
}

func TestEngineMetrics_Cache(t *testing.T) {
	m, c := newTestEngineMetrics(t)
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.Invalidated(3)
	m.Invalidated(0)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_energy_cache_hits_total 2")
	assert.Contains(t, out, "test_unit_energy_cache_misses_total 1")
	assert.Contains(t, out, "test_unit_energy_cache_invalidations_total 3")
}

func TestEngineMetrics_Evaluated(t *testing.T) {
	m, c := newTestEngineMetrics(t)
	m.Evaluated(50 * time.Microsecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_energy_evaluations_total 1")
	assert.Contains(t, out, `test_unit_energy_evaluation_duration_seconds_bucket{le="0.0001"} 1`)
	assert.Contains(t, out, `test_unit_energy_evaluation_duration_seconds_bucket{le="1e-05"} 0`)
}

func TestEngineMetrics_Gauges(t *testing.T) {
	m, c := newTestEngineMetrics(t)
	m.RolledBack("forcefield.changed")
	m.ForceFieldCount(4)
	m.SessionsActive(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_mutation_rollbacks_total{operation="forcefield.changed"} 1`)
	assert.Contains(t, out, "test_unit_forcefields 4")
	assert.Contains(t, out, "test_unit_sessions_active 2")
}

func TestEngineMetrics_SnapshotOp(t *testing.T) {
	m, c := newTestEngineMetrics(t)
	m.SnapshotOp("save", 2*time.Millisecond, 2048, nil)
	m.SnapshotOp("load", time.Millisecond, 4096, errors.New("boom"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_snapshot_operations_total{operation="save",status="success"} 1`)
	assert.Contains(t, out, `test_unit_snapshot_operations_total{operation="load",status="failure"} 1`)
	assert.Contains(t, out, "test_unit_snapshot_size_bytes_count 1")
	assert.Contains(t, out, "test_unit_snapshot_size_bytes_sum 2048")
}

func TestEngineMetrics_EventsPublished(t *testing.T) {
	m, c := newTestEngineMetrics(t)
	m.EventsPublished([]string{"forcefield.added", "molecules.changed", "molecules.changed"}, nil)
	m.EventsPublished([]string{"forcefield.added"}, errors.New("broker down"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_events_published_total{kind="forcefield.added"} 1`)
	assert.Contains(t, out, `test_unit_events_published_total{kind="molecules.changed"} 2`)
	assert.Contains(t, out, "test_unit_event_publish_errors_total 1")
}

//Personal.AI order the ending
