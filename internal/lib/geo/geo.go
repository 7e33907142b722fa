package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// Earth's mean radius in meters
const earthRadius = 6371000

// Invalid input is rejected before any computation, never silently fixed.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	ErrEmptyPolyline     = errors.New("polyline has no points")
)

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	if !IsValidCoordinate(p1) || !IsValidCoordinate(p2) {
		return 0, ErrInvalidCoordinate
	}

	// If points are the same, distance is 0
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0, nil
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c, nil
}

// Bearing calculates the initial bearing from p1 to p2 in degrees, normalized to [0, 360)
func (g *geoUtils) Bearing(p1, p2 Point) (float64, error) {
	if !IsValidCoordinate(p1) || !IsValidCoordinate(p2) {
		return 0, ErrInvalidCoordinate
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360), nil
}

// BearingDelta returns the signed angular difference b2-b1 normalized to (-180, 180].
// Positive values are clockwise (right), negative counter-clockwise (left).
func (g *geoUtils) BearingDelta(b1, b2 float64) float64 {
	delta := math.Mod(b2-b1, 360)
	if delta > 180 {
		delta -= 360
	} else if delta <= -180 {
		delta += 360
	}
	return delta
}

// NearestPointIndex returns the index of the polyline vertex minimizing distance to point.
// Ties are broken by the lowest index, so an earlier point wins over a later one.
func (g *geoUtils) NearestPointIndex(point Point, points []Point) (int, error) {
	if !IsValidCoordinate(point) {
		return 0, ErrInvalidCoordinate
	}
	if len(points) == 0 {
		return 0, ErrEmptyPolyline
	}

	nearestIndex := 0
	minDistance := math.Inf(1)

	for i, p := range points {
		distance, err := g.PointToPoint(point, p)
		if err != nil {
			return 0, err
		}
		// strict less keeps the earliest vertex on exact ties
		if distance < minDistance {
			minDistance = distance
			nearestIndex = i
		}
	}

	return nearestIndex, nil
}

// PointToPolyline calculates minimum distance from point to polyline
func (g *geoUtils) PointToPolyline(point Point, polyline Polyline) (float64, error) {
	if !IsValidCoordinate(point) {
		return 0, ErrInvalidCoordinate
	}
	if len(polyline.Points) == 0 {
		return 0, ErrEmptyPolyline
	}
	if len(polyline.Points) == 1 {
		return g.PointToPoint(point, polyline.Points[0])
	}

	minDistance := math.Inf(1)
	for i := 0; i < len(polyline.Points)-1; i++ {
		distance := g.pointToSegmentDistance(point, polyline.Points[i], polyline.Points[i+1])
		if distance < minDistance {
			minDistance = distance
		}
	}

	return minDistance, nil
}

// pointToSegmentDistance calculates perpendicular distance from point to line segment
// using the cross-track distance formula. This is an approximation suitable for the
// relatively short segments produced by pedestrian routing.
func (g *geoUtils) pointToSegmentDistance(point, segmentStart, segmentEnd Point) float64 {
	if segmentStart.Latitude == segmentEnd.Latitude && segmentStart.Longitude == segmentEnd.Longitude {
		distance, _ := g.PointToPoint(point, segmentStart)
		return distance
	}

	distanceToStart, _ := g.PointToPoint(point, segmentStart)
	distanceToEnd, _ := g.PointToPoint(point, segmentEnd)
	segmentLength, _ := g.PointToPoint(segmentStart, segmentEnd)

	// Degenerate segments collapse to the nearest endpoint
	if segmentLength < 1 {
		return math.Min(distanceToStart, distanceToEnd)
	}

	lat1 := segmentStart.Latitude * math.Pi / 180
	lon1 := segmentStart.Longitude * math.Pi / 180
	lat2 := segmentEnd.Latitude * math.Pi / 180
	lon2 := segmentEnd.Longitude * math.Pi / 180
	lat3 := point.Latitude * math.Pi / 180
	lon3 := point.Longitude * math.Pi / 180

	// Angular distance from segment start to the point
	d13 := distanceToStart / earthRadius

	// Bearing from start to end
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	bearingSegment := math.Atan2(y, x)

	// Bearing from start to point
	y = math.Sin(lon3-lon1) * math.Cos(lat3)
	x = math.Cos(lat1)*math.Sin(lat3) - math.Sin(lat1)*math.Cos(lat3)*math.Cos(lon3-lon1)
	bearingPoint := math.Atan2(y, x)

	// Cross-track distance
	dxt := math.Asin(math.Sin(d13) * math.Sin(bearingPoint-bearingSegment))
	crossTrackDistance := math.Abs(dxt) * earthRadius

	// Along-track distance tells us whether the projection falls inside the segment
	dat := math.Acos(math.Cos(d13) / math.Cos(dxt))
	alongTrackDistance := dat * earthRadius

	if alongTrackDistance > segmentLength {
		return distanceToEnd
	}

	return crossTrackDistance
}

// ClosestPointOnPolyline finds the closest point on polyline to the given point
func (g *geoUtils) ClosestPointOnPolyline(point Point, polyline Polyline) (Point, error) {
	if !IsValidCoordinate(point) {
		return Point{}, ErrInvalidCoordinate
	}
	if len(polyline.Points) == 0 {
		return Point{}, ErrEmptyPolyline
	}
	if len(polyline.Points) == 1 {
		return polyline.Points[0], nil
	}

	var closestPoint Point
	minDistance := math.Inf(1)

	for i := 0; i < len(polyline.Points)-1; i++ {
		candidate := g.closestPointOnSegment(point, polyline.Points[i], polyline.Points[i+1])
		distance, err := g.PointToPoint(point, candidate)
		if err != nil {
			return Point{}, err
		}
		if distance < minDistance {
			minDistance = distance
			closestPoint = candidate
		}
	}

	return closestPoint, nil
}

// closestPointOnSegment projects the point onto a segment using planar interpolation.
// Adequate for segment lengths seen in walking routes (well under 10km).
func (g *geoUtils) closestPointOnSegment(point, segmentStart, segmentEnd Point) Point {
	if segmentStart.Latitude == segmentEnd.Latitude && segmentStart.Longitude == segmentEnd.Longitude {
		return segmentStart
	}

	dLat := segmentEnd.Latitude - segmentStart.Latitude
	dLon := segmentEnd.Longitude - segmentStart.Longitude

	// Scale longitude deltas by cos(lat) so both axes are in comparable units
	cosLat := math.Cos(segmentStart.Latitude * math.Pi / 180)
	dx := dLon * cosLat
	dy := dLat
	px := (point.Longitude - segmentStart.Longitude) * cosLat
	py := point.Latitude - segmentStart.Latitude

	t := (px*dx + py*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return Point{
		Latitude:  segmentStart.Latitude + t*dLat,
		Longitude: segmentStart.Longitude + t*dLon,
	}
}

// ProgressPercent returns how far along the polyline the nearest vertex lies,
// as nearestIndex / (len-1) * 100 clamped to [0, 100].
func (g *geoUtils) ProgressPercent(points []Point, point Point) float64 {
	if len(points) < 2 || !IsValidCoordinate(point) {
		return 0
	}

	index, err := g.NearestPointIndex(point, points)
	if err != nil {
		return 0
	}

	percent := float64(index) / float64(len(points)-1) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// DecodePolyline decodes a Google polyline string to a point sequence
func (g *geoUtils) DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}
		if !IsValidCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}

// EncodePolyline encodes a point sequence to a Google polyline string
func (g *geoUtils) EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// BoundsAround computes the bounding box of a point sequence expanded by a
// margin in meters. The longitude margin is widened by 1/cos(lat) so the box
// stays roughly square away from the equator.
func BoundsAround(points []Point, marginMeters float64) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}

	box := BoundingBox{
		MinLat: points[0].Latitude, MaxLat: points[0].Latitude,
		MinLng: points[0].Longitude, MaxLng: points[0].Longitude,
	}
	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Latitude)
		box.MaxLat = math.Max(box.MaxLat, p.Latitude)
		box.MinLng = math.Min(box.MinLng, p.Longitude)
		box.MaxLng = math.Max(box.MaxLng, p.Longitude)
	}

	latMargin := marginMeters / 111320.0
	midLat := (box.MinLat + box.MaxLat) / 2
	cosLat := math.Cos(midLat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngMargin := latMargin / cosLat

	box.MinLat -= latMargin
	box.MaxLat += latMargin
	box.MinLng -= lngMargin
	box.MaxLng += lngMargin
	return box
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !IsValidCoordinate(point) {
		return Point{}, ErrInvalidCoordinate
	}
	return point, nil
}

// IsValidCoordinate validates latitude and longitude ranges. NaN fails both checks.
func IsValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
