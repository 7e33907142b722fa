package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/guidance"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// ErrRouteUnavailable wraps any path-provider failure. No retry happens here;
// retry policy belongs to the caller.
var ErrRouteUnavailable = errors.New("route unavailable")

// Margin added around the route bounding box when querying risk regions, so
// regions whose radius reaches the route are not missed.
const regionQueryMarginMeters = 1000.0

// assembler implements the Assembler interface
type assembler struct {
	provider    PathProvider
	regions     RegionSource
	scorer      risk.Scorer
	synthesizer guidance.Synthesizer
	geoUtils    geo.GeoUtils
}

// NewAssembler creates an Assembler over the given external collaborators
func NewAssembler(provider PathProvider, regions RegionSource) Assembler {
	return &assembler{
		provider:    provider,
		regions:     regions,
		scorer:      risk.NewScorer(),
		synthesizer: guidance.NewSynthesizer(),
		geoUtils:    geo.NewGeoUtils(),
	}
}

// ComputeRoute obtains a raw path from the provider, scores it against known
// risk regions and synthesizes turn-by-turn instructions
func (a *assembler) ComputeRoute(ctx context.Context, origin, destination geo.Point, preference Preference) (*Route, error) {
	if !geo.IsValidCoordinate(origin) || !geo.IsValidCoordinate(destination) {
		return nil, geo.ErrInvalidCoordinate
	}
	preference = preference.OrDefault()

	raw, err := a.provider.GetRoute(ctx, origin, destination, preference == PreferenceSafest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}

	return a.assemble(ctx, origin, destination, raw, preference)
}

// ComputeAlternatives runs the same pipeline over multiple candidate paths.
// Provider failure yields an empty slice, not an error.
func (a *assembler) ComputeAlternatives(ctx context.Context, origin, destination geo.Point, preference Preference) ([]*Route, error) {
	if !geo.IsValidCoordinate(origin) || !geo.IsValidCoordinate(destination) {
		return nil, geo.ErrInvalidCoordinate
	}
	preference = preference.OrDefault()

	raws, err := a.provider.GetAlternatives(ctx, origin, destination, preference == PreferenceSafest)
	if err != nil {
		return nil, nil
	}

	var routes []*Route
	for _, raw := range raws {
		route, err := a.assemble(ctx, origin, destination, raw, preference)
		if err != nil {
			// skip candidates that cannot be assembled
			continue
		}
		routes = append(routes, route)
	}

	return routes, nil
}

// assemble turns a raw provider path into a scored, annotated Route
func (a *assembler) assemble(ctx context.Context, origin, destination geo.Point, raw RawPath, preference Preference) (*Route, error) {
	waypoints := raw.Waypoints
	encoded := raw.Polyline

	if len(waypoints) == 0 && encoded != "" {
		decoded, err := a.geoUtils.DecodePolyline(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
		}
		waypoints = decoded
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: provider returned no usable path", ErrRouteUnavailable)
	}
	if encoded == "" {
		encoded = a.geoUtils.EncodePolyline(waypoints)
	}

	bounds := geo.BoundsAround(waypoints, regionQueryMarginMeters)
	regions, err := a.regions.GetRegionsNear(ctx, bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: risk data unavailable: %v", ErrRouteUnavailable, err)
	}

	score, err := a.scorer.ScorePolyline(waypoints, regions)
	if err != nil {
		return nil, err
	}

	instructions, err := a.synthesizer.Synthesize(waypoints)
	if err != nil {
		return nil, err
	}

	return &Route{
		ID:               uuid.NewString(),
		Origin:           origin,
		Destination:      destination,
		Waypoints:        waypoints,
		Polyline:         encoded,
		DistanceMeters:   raw.DistanceMeters,
		DurationSeconds:  raw.DurationSeconds,
		MaxRiskIndex:     score.MaxRiskIndex,
		AverageRiskIndex: score.AverageRiskIndex,
		RiskLevel:        a.scorer.LevelFor(score.MaxRiskIndex),
		RequiresWarning:  score.RequiresWarning,
		WarningMessage:   score.WarningMessage,
		Instructions:     instructions,
		RiskRegions:      score.RegionsOnRoute,
		Preference:       preference,
	}, nil
}
