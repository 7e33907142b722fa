package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes navigation engine counters and histograms
type Metrics struct {
	RoutesComputed        *prometheus.CounterVec
	RouteComputeDuration  prometheus.Histogram
	RouteCacheHits        prometheus.Counter
	Recalculations        prometheus.Counter
	RecalculationFailures prometheus.Counter
	AlertsEmitted         prometheus.Counter
	ActiveSessions        prometheus.Gauge
}

// NewMetrics registers navigation metrics against the provided registerer.
// A nil registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RoutesComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "navigation_routes_computed_total",
			Help: "Cumulative number of routes computed, labeled by preference.",
		}, []string{"preference"}),
		RouteComputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "navigation_route_compute_duration_seconds",
			Help:    "Duration of full route computations including scoring.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		RouteCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "navigation_route_cache_hits_total",
			Help: "Cumulative number of route computations served from cache.",
		}),
		Recalculations: factory.NewCounter(prometheus.CounterOpts{
			Name: "navigation_recalculations_total",
			Help: "Cumulative number of deviation-triggered route recalculations.",
		}),
		RecalculationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "navigation_recalculation_failures_total",
			Help: "Recalculations that failed and left the session on its stale route.",
		}),
		AlertsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "navigation_proximity_alerts_total",
			Help: "Cumulative number of proximity alerts emitted.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "navigation_active_sessions",
			Help: "Number of navigation sessions currently active.",
		}),
	}
}
