package geo

// Point represents a geographic coordinate in decimal degrees (WGS84)
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Polyline represents an encoded polyline with optional decoded points
type Polyline struct {
	EncodedPolyline string  `json:"encoded_polyline"`
	Points          []Point `json:"points"`
}

// BoundingBox is an axis-aligned latitude/longitude rectangle
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the point lies inside the box (inclusive)
func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// GeoUtils interface defines geographic calculation utilities
type GeoUtils interface {
	// Calculate great-circle distance between two points in meters
	PointToPoint(p1, p2 Point) (float64, error)

	// Calculate initial bearing from p1 to p2, normalized to [0, 360)
	Bearing(p1, p2 Point) (float64, error)

	// Signed angular difference between two bearings, normalized to (-180, 180].
	// Positive means clockwise (right turn), negative counter-clockwise (left turn).
	BearingDelta(b1, b2 float64) float64

	// Index of the polyline vertex nearest to point; ties broken by lowest index
	NearestPointIndex(point Point, points []Point) (int, error)

	// Calculate minimum distance from point to polyline in meters
	PointToPolyline(point Point, polyline Polyline) (float64, error)

	// Find closest point on polyline to given point
	ClosestPointOnPolyline(point Point, polyline Polyline) (Point, error)

	// Percentage of the polyline covered up to the vertex nearest to point,
	// clamped to [0, 100]. Returns 0 for polylines with fewer than 2 points.
	ProgressPercent(points []Point, point Point) float64

	// Decode Google polyline string to point sequence
	DecodePolyline(encoded string) ([]Point, error)

	// Encode point sequence to Google polyline string
	EncodePolyline(points []Point) string
}

// NewGeoUtils is implemented in geo.go
