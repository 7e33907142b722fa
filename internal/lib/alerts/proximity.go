package alerts

import (
	"math"
	"time"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// Alert radius scaling. Faster travel gets an earlier warning; above the
// high-speed threshold the radius is clamped rather than growing unbounded.
const (
	MinAlertDistanceMeters       = 100.0
	HighSpeedAlertDistanceMeters = 500.0
	highSpeedThresholdKmh        = 40.0
)

// Only regions at or above this index ever trigger proximity alerts
const alertRiskThreshold = risk.HighThreshold

// engine implements the Engine interface
type engine struct {
	geoUtils geo.GeoUtils
}

// NewEngine creates a new proximity alert Engine
func NewEngine() Engine {
	return &engine{geoUtils: geo.NewGeoUtils()}
}

// CalculateAlertDistance scales the alert radius linearly with speed between
// the stationary floor and the high-speed clamp
func (e *engine) CalculateAlertDistance(speedKmh float64) float64 {
	if math.IsNaN(speedKmh) || speedKmh <= 0 {
		return MinAlertDistanceMeters
	}
	if speedKmh > highSpeedThresholdKmh {
		return HighSpeedAlertDistanceMeters
	}
	scale := speedKmh / highSpeedThresholdKmh
	return MinAlertDistanceMeters + scale*(HighSpeedAlertDistanceMeters-MinAlertDistanceMeters)
}

// CheckAlertConditions evaluates the position against every candidate region
func (e *engine) CheckAlertConditions(position geo.Point, speedKmh float64, regions []risk.Region, alerted map[string]bool, prefs Preferences) []Alert {
	if !prefs.Enabled {
		return nil
	}
	if !geo.IsValidCoordinate(position) {
		return nil
	}

	alertDistance := e.CalculateAlertDistance(speedKmh)
	now := time.Now().UTC()

	var triggered []Alert
	for _, region := range regions {
		if region.RiskIndex < alertRiskThreshold {
			continue
		}
		if alerted[region.ID] {
			continue
		}
		if !crimeTypeAllowed(region.DominantCrimeType, prefs.CrimeTypes) {
			continue
		}

		distance, err := e.geoUtils.PointToPoint(position, region.Centroid)
		if err != nil || distance > alertDistance {
			continue
		}

		alerted[region.ID] = true
		triggered = append(triggered, Alert{
			RiskRegionID:   region.ID,
			CrimeType:      region.DominantCrimeType,
			DistanceMeters: distance,
			TriggeredAt:    now,
		})
	}

	return triggered
}

// crimeTypeAllowed checks the optional allow-list; an empty list allows all
func crimeTypeAllowed(crimeType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if t == crimeType {
			return true
		}
	}
	return false
}
