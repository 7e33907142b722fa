package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stanux/walking-safely-sub002/internal/cache"
	"github.com/Stanux/walking-safely-sub002/internal/config"
	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
	"github.com/Stanux/walking-safely-sub002/internal/observability"
)

// fakeRouteAssembler returns canned routes and counts invocations
type fakeRouteAssembler struct {
	route *routing.Route
	err   error
	calls int
}

func (f *fakeRouteAssembler) ComputeRoute(ctx context.Context, origin, destination geo.Point, preference routing.Preference) (*routing.Route, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.route
	copied.Preference = preference
	return &copied, nil
}

func (f *fakeRouteAssembler) ComputeAlternatives(ctx context.Context, origin, destination geo.Point, preference routing.Preference) ([]*routing.Route, error) {
	f.calls++
	if f.err != nil {
		return nil, nil
	}
	copied := *f.route
	return []*routing.Route{&copied}, nil
}

// fakeWarningEnhancer rewrites every warning to a fixed message
type fakeWarningEnhancer struct {
	message string
	err     error
	raw     alerts.RawWarning
}

func (f *fakeWarningEnhancer) EnhanceWarning(ctx context.Context, raw alerts.RawWarning) (string, error) {
	f.raw = raw
	if f.err != nil {
		return "", f.err
	}
	return f.message, nil
}

var (
	serviceOrigin      = geo.Point{Latitude: -23.5614, Longitude: -46.6559}
	serviceDestination = geo.Point{Latitude: -23.5505, Longitude: -46.6333}
)

func scoredRoute() *routing.Route {
	return &routing.Route{
		ID:              "route-1",
		Origin:          serviceOrigin,
		Destination:     serviceDestination,
		Waypoints:       []geo.Point{serviceOrigin, serviceDestination},
		DistanceMeters:  2650,
		DurationSeconds: 1980,
		MaxRiskIndex:    80,
		RiskLevel:       risk.LevelHigh,
		RequiresWarning: true,
		WarningMessage:  "This route passes through high-risk areas.",
		RiskRegions: []risk.Region{
			{ID: "r1", RiskIndex: 80, DominantCrimeType: "robbery"},
			{ID: "r2", RiskIndex: 75, DominantCrimeType: "robbery"},
		},
	}
}

func newRouteService(assembler routing.Assembler, enhancer alerts.WarningEnhancer) *RouteService {
	cfg := &config.PathfinderConfig{RouteTTL: time.Minute}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewRouteService(assembler, enhancer, cache.New(), metrics, cfg)
}

func TestComputeRoute_CachesResult(t *testing.T) {
	assembler := &fakeRouteAssembler{route: scoredRoute()}
	service := newRouteService(assembler, nil)

	first, err := service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, routing.PreferenceSafest)
	require.NoError(t, err)

	second, err := service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, routing.PreferenceSafest)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, assembler.calls, "Second identical request should be served from cache")
}

func TestComputeRoute_CacheKeyedByPreference(t *testing.T) {
	assembler := &fakeRouteAssembler{route: scoredRoute()}
	service := newRouteService(assembler, nil)

	_, err := service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, routing.PreferenceSafest)
	require.NoError(t, err)

	_, err = service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, routing.PreferenceFastest)
	require.NoError(t, err)

	assert.Equal(t, 2, assembler.calls, "Different preferences must not share a cache entry")
}

func TestComputeRoute_EnhancesWarning(t *testing.T) {
	assembler := &fakeRouteAssembler{route: scoredRoute()}
	enhancer := &fakeWarningEnhancer{message: "Watch your phone near the market."}
	service := newRouteService(assembler, enhancer)

	route, err := service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, "")
	require.NoError(t, err)

	assert.Equal(t, "Watch your phone near the market.", route.WarningMessage)
	assert.Equal(t, []string{"robbery"}, enhancer.raw.DominantCrimeTypes,
		"Duplicate crime types should be collapsed before enhancement")
}

func TestComputeRoute_EnhancementFailureKeepsTemplate(t *testing.T) {
	assembler := &fakeRouteAssembler{route: scoredRoute()}
	enhancer := &fakeWarningEnhancer{err: errors.New("rate limited")}
	service := newRouteService(assembler, enhancer)

	route, err := service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, "")
	require.NoError(t, err)
	assert.Equal(t, "This route passes through high-risk areas.", route.WarningMessage)
}

func TestComputeRoute_ProviderError(t *testing.T) {
	assembler := &fakeRouteAssembler{err: routing.ErrRouteUnavailable}
	service := newRouteService(assembler, nil)

	_, err := service.ComputeRoute(context.Background(), serviceOrigin, serviceDestination, "")
	assert.ErrorIs(t, err, routing.ErrRouteUnavailable)
}
