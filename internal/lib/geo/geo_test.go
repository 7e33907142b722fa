package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoUtils_PointToPoint(t *testing.T) {
	// Av. Paulista to Praça da Sé (central São Paulo, real walking corridor)
	paulista := Point{Latitude: -23.5614, Longitude: -46.6559}
	se := Point{Latitude: -23.5505, Longitude: -46.6333}

	geoUtils := NewGeoUtils()

	distance, err := geoUtils.PointToPoint(paulista, se)
	require.NoError(t, err)
	assert.InDelta(t, 2600, distance, 150, "Distance should be approximately 2.6km")

	// Symmetric
	reverse, err := geoUtils.PointToPoint(se, paulista)
	require.NoError(t, err)
	assert.InDelta(t, distance, reverse, 0.001)

	// Zero for identical points
	zero, err := geoUtils.PointToPoint(paulista, paulista)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)

	// Invalid coordinates are rejected, never silently fixed
	invalid := Point{Latitude: 200, Longitude: -300}
	_, err = geoUtils.PointToPoint(paulista, invalid)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	nan := Point{Latitude: math.NaN(), Longitude: -46.6}
	_, err = geoUtils.PointToPoint(paulista, nan)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestGeoUtils_Bearing(t *testing.T) {
	geoUtils := NewGeoUtils()
	origin := Point{Latitude: -23.5614, Longitude: -46.6559}

	north := Point{Latitude: -23.5514, Longitude: -46.6559}
	bearing, err := geoUtils.Bearing(origin, north)
	require.NoError(t, err)
	assert.InDelta(t, 0, bearing, 0.5, "Due north should bear ~0 degrees")

	east := Point{Latitude: -23.5614, Longitude: -46.6459}
	bearing, err = geoUtils.Bearing(origin, east)
	require.NoError(t, err)
	assert.InDelta(t, 90, bearing, 0.5, "Due east should bear ~90 degrees")

	south := Point{Latitude: -23.5714, Longitude: -46.6559}
	bearing, err = geoUtils.Bearing(origin, south)
	require.NoError(t, err)
	assert.InDelta(t, 180, bearing, 0.5, "Due south should bear ~180 degrees")

	west := Point{Latitude: -23.5614, Longitude: -46.6659}
	bearing, err = geoUtils.Bearing(origin, west)
	require.NoError(t, err)
	assert.InDelta(t, 270, bearing, 0.5, "Due west should bear ~270 degrees")

	// Result is always normalized to [0, 360)
	assert.GreaterOrEqual(t, bearing, 0.0)
	assert.Less(t, bearing, 360.0)
}

func TestGeoUtils_BearingDelta(t *testing.T) {
	geoUtils := NewGeoUtils()

	tests := []struct {
		name     string
		b1, b2   float64
		expected float64
	}{
		{"small right turn", 10, 30, 20},
		{"small left turn", 30, 10, -20},
		{"wraparound right", 350, 10, 20},
		{"wraparound left", 10, 350, -20},
		{"straight", 90, 90, 0},
		{"u-turn maps to +180", 0, 180, 180},
		{"reverse u-turn maps to +180", 180, 0, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := geoUtils.BearingDelta(tt.b1, tt.b2)
			assert.InDelta(t, tt.expected, delta, 0.0001)
			assert.Greater(t, delta, -180.0, "Delta must be in (-180, 180]")
			assert.LessOrEqual(t, delta, 180.0, "Delta must be in (-180, 180]")
		})
	}
}

func TestGeoUtils_NearestPointIndex(t *testing.T) {
	geoUtils := NewGeoUtils()

	points := []Point{
		{Latitude: -23.5614, Longitude: -46.6600},
		{Latitude: -23.5614, Longitude: -46.6500},
		{Latitude: -23.5614, Longitude: -46.6400},
	}

	index, err := geoUtils.NearestPointIndex(Point{Latitude: -23.5615, Longitude: -46.6502}, points)
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	// Exactly equidistant between vertices 0 and 1: the earlier vertex wins,
	// favoring "not yet arrived" over "already passed"
	index, err = geoUtils.NearestPointIndex(Point{Latitude: -23.5614, Longitude: -46.6550}, points)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	_, err = geoUtils.NearestPointIndex(Point{Latitude: -23.5614, Longitude: -46.6550}, nil)
	assert.ErrorIs(t, err, ErrEmptyPolyline)
}

func TestGeoUtils_PointToPolyline(t *testing.T) {
	geoUtils := NewGeoUtils()

	routePolyline := Polyline{
		Points: []Point{
			{Latitude: -23.5614, Longitude: -46.6559},
			{Latitude: -23.5560, Longitude: -46.6450},
			{Latitude: -23.5505, Longitude: -46.6333},
		},
	}

	// Point on a vertex is effectively at distance zero
	distance, err := geoUtils.PointToPolyline(Point{Latitude: -23.5614, Longitude: -46.6559}, routePolyline)
	require.NoError(t, err)
	assert.Less(t, distance, 1.0)

	// Off-route point is a positive, bounded distance away
	distance, err = geoUtils.PointToPolyline(Point{Latitude: -23.5650, Longitude: -46.6500}, routePolyline)
	require.NoError(t, err)
	assert.Greater(t, distance, 0.0)
	assert.Less(t, distance, 2000.0)

	_, err = geoUtils.PointToPolyline(Point{Latitude: -23.5, Longitude: -46.6}, Polyline{})
	assert.ErrorIs(t, err, ErrEmptyPolyline)
}

func TestGeoUtils_ClosestPointOnPolyline(t *testing.T) {
	geoUtils := NewGeoUtils()

	routePolyline := Polyline{
		Points: []Point{
			{Latitude: -23.5600, Longitude: -46.6600},
			{Latitude: -23.5600, Longitude: -46.6400},
		},
	}

	// Point just north of the segment midpoint projects onto the segment interior
	closest, err := geoUtils.ClosestPointOnPolyline(Point{Latitude: -23.5590, Longitude: -46.6500}, routePolyline)
	require.NoError(t, err)
	assert.InDelta(t, -23.5600, closest.Latitude, 0.0005)
	assert.InDelta(t, -46.6500, closest.Longitude, 0.0005)

	// Point beyond the segment end clamps to the endpoint
	closest, err = geoUtils.ClosestPointOnPolyline(Point{Latitude: -23.5600, Longitude: -46.6300}, routePolyline)
	require.NoError(t, err)
	assert.InDelta(t, -46.6400, closest.Longitude, 0.0005)
}

func TestGeoUtils_ProgressPercent(t *testing.T) {
	geoUtils := NewGeoUtils()

	points := []Point{
		{Latitude: -23.5600, Longitude: -46.6600},
		{Latitude: -23.5600, Longitude: -46.6550},
		{Latitude: -23.5600, Longitude: -46.6500},
		{Latitude: -23.5600, Longitude: -46.6450},
		{Latitude: -23.5600, Longitude: -46.6400},
	}

	assert.Equal(t, 0.0, geoUtils.ProgressPercent(points, points[0]))
	assert.Equal(t, 50.0, geoUtils.ProgressPercent(points, points[2]))
	assert.Equal(t, 100.0, geoUtils.ProgressPercent(points, points[4]))

	// Degenerate polylines and invalid points report zero progress
	assert.Equal(t, 0.0, geoUtils.ProgressPercent(points[:1], points[0]))
	assert.Equal(t, 0.0, geoUtils.ProgressPercent(points, Point{Latitude: 999, Longitude: 0}))
}

func TestGeoUtils_PolylineRoundTrip(t *testing.T) {
	geoUtils := NewGeoUtils()

	points := []Point{
		{Latitude: -23.5614, Longitude: -46.6559},
		{Latitude: -23.5560, Longitude: -46.6450},
		{Latitude: -23.5505, Longitude: -46.6333},
	}

	encoded := geoUtils.EncodePolyline(points)
	require.NotEmpty(t, encoded)

	decoded, err := geoUtils.DecodePolyline(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(points))
	for i := range points {
		assert.InDelta(t, points[i].Latitude, decoded[i].Latitude, 0.00001)
		assert.InDelta(t, points[i].Longitude, decoded[i].Longitude, 0.00001)
	}

	_, err = geoUtils.DecodePolyline("")
	assert.Error(t, err)
}
