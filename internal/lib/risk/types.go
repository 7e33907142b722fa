package risk

import (
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
)

// Thresholds for route warnings, in risk index points
const (
	WarningThreshold = 30
	HighThreshold    = 70
)

// Level is the four-bucket risk scale used for score labeling and UI highlighting
type Level string

const (
	LevelMinimal  Level = "minimal"  // < 30
	LevelLow      Level = "low"      // 30-49
	LevelModerate Level = "moderate" // 50-69
	LevelHigh     Level = "high"     // >= 70
)

// Region is a geographic area with an aggregated severity-weighted risk score.
// Produced by an external aggregation collaborator; read-only to this package.
type Region struct {
	ID                string    `json:"id"`
	Centroid          geo.Point `json:"centroid"`
	RadiusMeters      float64   `json:"radius_meters"`
	RiskIndex         int       `json:"risk_index"` // 0..100
	DominantCrimeType string    `json:"dominant_crime_type"`
}

// Score aggregates per-point risk over a route polyline
type Score struct {
	MaxRiskIndex     int      `json:"max_risk_index"`
	AverageRiskIndex float64  `json:"average_risk_index"`
	RequiresWarning  bool     `json:"requires_warning"`
	WarningMessage   string   `json:"warning_message,omitempty"`
	RegionsOnRoute   []Region `json:"regions_on_route,omitempty"`
}

// Scorer computes risk indices for route polylines against known risk regions
type Scorer interface {
	// Score a polyline against the provided regions. Points outside every
	// region contribute 0; a point inside a region contributes that region's
	// full risk index (binary inclusion, no distance decay).
	ScorePolyline(points []geo.Point, regions []Region) (Score, error)

	// LevelFor maps a risk index to the four-bucket scale
	LevelFor(index int) Level
}

// NewScorer is implemented in scorer.go
