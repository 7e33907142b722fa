package alerts

import (
	"time"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// Alert is a proximity warning for a single risk region. Alerts are
// ephemeral; nothing in this package persists them.
type Alert struct {
	RiskRegionID   string    `json:"risk_region_id"`
	CrimeType      string    `json:"crime_type"`
	DistanceMeters float64   `json:"distance_meters"`
	TriggeredAt    time.Time `json:"triggered_at"`
}

// Preferences are caller-supplied alerting settings
type Preferences struct {
	// Enabled gates the whole check: disabled means a silent no-op
	Enabled bool `json:"enabled"`
	// CrimeTypes is an optional allow-list; empty allows every type
	CrimeTypes []string `json:"crime_types,omitempty"`
}

// Engine evaluates traveler positions against risk regions and derives the
// alert radius from current speed
type Engine interface {
	// CalculateAlertDistance returns the alert radius in meters for the
	// given speed. Invalid or negative speed is treated as stationary.
	CalculateAlertDistance(speedKmh float64) float64

	// CheckAlertConditions emits at most one Alert per region for the
	// lifetime of the alerted set: regions already present in alerted are
	// skipped, and newly alerted regions are recorded in it.
	CheckAlertConditions(position geo.Point, speedKmh float64, regions []risk.Region, alerted map[string]bool, prefs Preferences) []Alert
}

// NewEngine is implemented in proximity.go
