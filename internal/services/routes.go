package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Stanux/walking-safely-sub002/internal/cache"
	"github.com/Stanux/walking-safely-sub002/internal/config"
	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
	"github.com/Stanux/walking-safely-sub002/internal/observability"
)

// RouteService computes scored routes, caching results and enhancing
// warnings where configured
type RouteService struct {
	assembler routing.Assembler
	enhancer  alerts.WarningEnhancer
	cache     *cache.Cache
	metrics   *observability.Metrics
	config    *config.PathfinderConfig
}

// NewRouteService creates a new RouteService. The enhancer may be nil when
// warning enhancement is not configured.
func NewRouteService(assembler routing.Assembler, enhancer alerts.WarningEnhancer, c *cache.Cache, metrics *observability.Metrics, cfg *config.PathfinderConfig) *RouteService {
	return &RouteService{
		assembler: assembler,
		enhancer:  enhancer,
		cache:     c,
		metrics:   metrics,
		config:    cfg,
	}
}

// ComputeRoute returns a scored route between two points
func (s *RouteService) ComputeRoute(ctx context.Context, origin, destination geo.Point, preference routing.Preference) (*routing.Route, error) {
	preference = preference.OrDefault()
	cacheKey := routeCacheKey(origin, destination, preference)

	var cached routing.Route
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		log.Printf("Cache error: %v", err)
	}
	if found {
		s.metrics.RouteCacheHits.Inc()
		return &cached, nil
	}

	start := time.Now()
	route, err := s.assembler.ComputeRoute(ctx, origin, destination, preference)
	if err != nil {
		return nil, fmt.Errorf("failed to compute route: %w", err)
	}
	s.metrics.RouteComputeDuration.Observe(time.Since(start).Seconds())
	s.metrics.RoutesComputed.WithLabelValues(string(preference)).Inc()

	s.enhanceWarning(ctx, route)

	if err := s.cache.Set(cacheKey, route, s.config.RouteTTL, "routes"); err != nil {
		log.Printf("Failed to cache route: %v", err)
	}

	return route, nil
}

// ComputeAlternatives returns scored alternative routes. An empty slice is a
// valid result when no alternative can be computed.
func (s *RouteService) ComputeAlternatives(ctx context.Context, origin, destination geo.Point, preference routing.Preference) ([]*routing.Route, error) {
	preference = preference.OrDefault()

	routes, err := s.assembler.ComputeAlternatives(ctx, origin, destination, preference)
	if err != nil {
		return nil, err
	}

	for _, route := range routes {
		s.metrics.RoutesComputed.WithLabelValues(string(preference)).Inc()
		s.enhanceWarning(ctx, route)
	}
	return routes, nil
}

// enhanceWarning rewrites the template warning when an enhancer is
// configured. Failures keep the template; a route never loses its warning.
func (s *RouteService) enhanceWarning(ctx context.Context, route *routing.Route) {
	if s.enhancer == nil || !route.RequiresWarning {
		return
	}

	crimeTypes := make([]string, 0, len(route.RiskRegions))
	seen := make(map[string]bool)
	for _, region := range route.RiskRegions {
		if region.DominantCrimeType == "" || seen[region.DominantCrimeType] {
			continue
		}
		seen[region.DominantCrimeType] = true
		crimeTypes = append(crimeTypes, region.DominantCrimeType)
	}

	enhanced, err := s.enhancer.EnhanceWarning(ctx, alerts.RawWarning{
		MaxRiskIndex:       route.MaxRiskIndex,
		AverageRiskIndex:   route.AverageRiskIndex,
		RiskLevel:          string(route.RiskLevel),
		DominantCrimeTypes: crimeTypes,
		TemplateMessage:    route.WarningMessage,
	})
	if err != nil {
		log.Printf("Warning enhancement failed, keeping template: %v", err)
		return
	}
	route.WarningMessage = enhanced
}

// routeCacheKey builds a stable key from endpoints and preference. Positions
// are rounded so GPS jitter between nearby requests still hits the cache.
func routeCacheKey(origin, destination geo.Point, preference routing.Preference) string {
	return fmt.Sprintf("route:%.4f,%.4f:%.4f,%.4f:%s",
		origin.Latitude, origin.Longitude,
		destination.Latitude, destination.Longitude,
		preference)
}
