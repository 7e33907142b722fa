package alerts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// highRiskRegionAt builds a high-risk region centered at the given point
func highRiskRegionAt(id string, center geo.Point, index int, crimeType string) risk.Region {
	return risk.Region{
		ID:                id,
		Centroid:          center,
		RadiusMeters:      150,
		RiskIndex:         index,
		DominantCrimeType: crimeType,
	}
}

func TestCalculateAlertDistance_Stationary(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, MinAlertDistanceMeters, e.CalculateAlertDistance(0),
		"Stationary traveler should get the minimum alert radius")
	assert.Equal(t, MinAlertDistanceMeters, e.CalculateAlertDistance(-5),
		"Negative speed should be treated as stationary")
	assert.Equal(t, MinAlertDistanceMeters, e.CalculateAlertDistance(math.NaN()),
		"NaN speed should be treated as stationary")
}

func TestCalculateAlertDistance_ScalesWithSpeed(t *testing.T) {
	e := NewEngine()

	walking := e.CalculateAlertDistance(5)
	running := e.CalculateAlertDistance(12)
	cycling := e.CalculateAlertDistance(25)

	assert.Greater(t, walking, MinAlertDistanceMeters)
	assert.Greater(t, running, walking, "Faster travel should widen the alert radius")
	assert.Greater(t, cycling, running)
	assert.LessOrEqual(t, cycling, HighSpeedAlertDistanceMeters)
}

func TestCalculateAlertDistance_HighSpeedClamp(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, HighSpeedAlertDistanceMeters, e.CalculateAlertDistance(41))
	assert.Equal(t, HighSpeedAlertDistanceMeters, e.CalculateAlertDistance(120),
		"Radius should stay clamped no matter how fast the traveler moves")
}

func TestCheckAlertConditions_TriggersOncePerRegion(t *testing.T) {
	e := NewEngine()
	position := geo.Point{Latitude: 0, Longitude: 0}

	// Centroid roughly 90m north of the traveler, inside the 100m floor
	region := highRiskRegionAt("region-1", geo.Point{Latitude: 0.00081, Longitude: 0}, 75, "robbery")
	alerted := make(map[string]bool)
	prefs := Preferences{Enabled: true}

	first := e.CheckAlertConditions(position, 0, []risk.Region{region}, alerted, prefs)
	require.Len(t, first, 1, "Traveler within the alert radius should get exactly one alert")
	assert.Equal(t, "region-1", first[0].RiskRegionID)
	assert.Equal(t, "robbery", first[0].CrimeType)
	assert.InDelta(t, 90, first[0].DistanceMeters, 5)
	assert.False(t, first[0].TriggeredAt.IsZero())

	second := e.CheckAlertConditions(position, 0, []risk.Region{region}, alerted, prefs)
	assert.Empty(t, second, "Region already alerted should not fire again")
	assert.True(t, alerted["region-1"])
}

func TestCheckAlertConditions_IgnoresLowRiskRegions(t *testing.T) {
	e := NewEngine()
	position := geo.Point{Latitude: 0, Longitude: 0}

	// Right on top of the traveler, but below the high-risk threshold
	region := highRiskRegionAt("region-low", geo.Point{Latitude: 0.0001, Longitude: 0}, 69, "theft")

	alerts := e.CheckAlertConditions(position, 0, []risk.Region{region},
		make(map[string]bool), Preferences{Enabled: true})
	assert.Empty(t, alerts, "Regions below the high-risk threshold should never alert")
}

func TestCheckAlertConditions_RespectsAlertRadius(t *testing.T) {
	e := NewEngine()
	position := geo.Point{Latitude: 0, Longitude: 0}

	// Roughly 250m away: outside the stationary radius, inside the
	// high-speed radius
	region := highRiskRegionAt("region-far", geo.Point{Latitude: 0.00225, Longitude: 0}, 80, "assault")
	prefs := Preferences{Enabled: true}

	stationary := e.CheckAlertConditions(position, 0, []risk.Region{region},
		make(map[string]bool), prefs)
	assert.Empty(t, stationary, "250m away should be outside the stationary radius")

	fast := e.CheckAlertConditions(position, 45, []risk.Region{region},
		make(map[string]bool), prefs)
	assert.Len(t, fast, 1, "High speed should widen the radius enough to cover 250m")
}

func TestCheckAlertConditions_DisabledIsNoOp(t *testing.T) {
	e := NewEngine()
	position := geo.Point{Latitude: 0, Longitude: 0}
	region := highRiskRegionAt("region-1", geo.Point{Latitude: 0.0005, Longitude: 0}, 90, "robbery")

	alerted := make(map[string]bool)
	alerts := e.CheckAlertConditions(position, 0, []risk.Region{region}, alerted,
		Preferences{Enabled: false})

	assert.Empty(t, alerts)
	assert.Empty(t, alerted, "Disabled alerting should not mark regions as seen")
}

func TestCheckAlertConditions_CrimeTypeAllowList(t *testing.T) {
	e := NewEngine()
	position := geo.Point{Latitude: 0, Longitude: 0}

	robbery := highRiskRegionAt("region-robbery", geo.Point{Latitude: 0.0005, Longitude: 0}, 85, "robbery")
	theft := highRiskRegionAt("region-theft", geo.Point{Latitude: 0, Longitude: 0.0005}, 85, "theft")
	prefs := Preferences{Enabled: true, CrimeTypes: []string{"robbery"}}

	alerts := e.CheckAlertConditions(position, 0, []risk.Region{robbery, theft},
		make(map[string]bool), prefs)

	require.Len(t, alerts, 1)
	assert.Equal(t, "region-robbery", alerts[0].RiskRegionID,
		"Only allow-listed crime types should alert")
}

func TestCheckAlertConditions_InvalidPosition(t *testing.T) {
	e := NewEngine()
	region := highRiskRegionAt("region-1", geo.Point{Latitude: 0, Longitude: 0}, 90, "robbery")

	alerts := e.CheckAlertConditions(geo.Point{Latitude: 91, Longitude: 0}, 0,
		[]risk.Region{region}, make(map[string]bool), Preferences{Enabled: true})
	assert.Empty(t, alerts, "Invalid coordinates should produce no alerts")
}
