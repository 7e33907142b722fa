package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RoutesComputed.WithLabelValues("safest").Inc()
	m.RouteCacheHits.Inc()
	m.Recalculations.Inc()
	m.RecalculationFailures.Inc()
	m.AlertsEmitted.Add(3)
	m.ActiveSessions.Set(2)
	m.RouteComputeDuration.Observe(0.42)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}

	for _, expected := range []string{
		"navigation_routes_computed_total",
		"navigation_route_compute_duration_seconds",
		"navigation_route_cache_hits_total",
		"navigation_recalculations_total",
		"navigation_recalculation_failures_total",
		"navigation_proximity_alerts_total",
		"navigation_active_sessions",
	} {
		assert.True(t, names[expected], "metric %s should be registered", expected)
	}
}
