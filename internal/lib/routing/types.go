package routing

import (
	"context"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/guidance"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// Preference is the routing objective, chosen once per trip
type Preference string

const (
	PreferenceFastest Preference = "fastest"
	PreferenceSafest  Preference = "safest"
)

// OrDefault resolves an unspecified preference to safest. The default is
// never inferred from data.
func (p Preference) OrDefault() Preference {
	if p == PreferenceFastest {
		return PreferenceFastest
	}
	return PreferenceSafest
}

// Route is a scored, annotated path between two points. A Route is immutable
// once assembled; recalculation produces a new instance.
type Route struct {
	ID               string                 `json:"id"`
	Origin           geo.Point              `json:"origin"`
	Destination      geo.Point              `json:"destination"`
	Waypoints        []geo.Point            `json:"waypoints"`
	Polyline         string                 `json:"polyline"`
	DistanceMeters   float64                `json:"distance"`
	DurationSeconds  int                    `json:"duration"`
	MaxRiskIndex     int                    `json:"max_risk_index"`
	AverageRiskIndex float64                `json:"average_risk_index"`
	RiskLevel        risk.Level             `json:"risk_level"`
	RequiresWarning  bool                   `json:"requires_warning"`
	WarningMessage   string                 `json:"warning_message,omitempty"`
	Instructions     []guidance.Instruction `json:"instructions"`
	RiskRegions      []risk.Region          `json:"risk_regions,omitempty"`
	Preference       Preference             `json:"preference"`
}

// RawPath is what the external path provider returns: geometry plus totals,
// with no risk annotation
type RawPath struct {
	Polyline        string
	Waypoints       []geo.Point
	DistanceMeters  float64
	DurationSeconds int
}

// PathProvider is the external routing collaborator. It decides the actual
// path-finding; this package only decides which variant to request.
type PathProvider interface {
	GetRoute(ctx context.Context, origin, destination geo.Point, preferSafe bool) (RawPath, error)
	GetAlternatives(ctx context.Context, origin, destination geo.Point, preferSafe bool) ([]RawPath, error)
}

// RegionSource supplies risk regions near a route. Assumed fresh; this
// package does not cache or invalidate it.
type RegionSource interface {
	GetRegionsNear(ctx context.Context, bounds geo.BoundingBox) ([]risk.Region, error)
}

// Assembler composes the path provider, risk scorer and instruction
// synthesizer into scored routes
type Assembler interface {
	ComputeRoute(ctx context.Context, origin, destination geo.Point, preference Preference) (*Route, error)

	// ComputeAlternatives requests multiple candidate paths. Failures are
	// non-fatal: an empty slice is a valid, successful result.
	ComputeAlternatives(ctx context.Context, origin, destination geo.Point, preference Preference) ([]*Route, error)
}

// NewAssembler is implemented in assembler.go
