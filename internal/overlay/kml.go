package overlay

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml/v2"

	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
)

// WriteRouteOverlay renders a scored route and its risk regions as a KML
// document for map tools. The route becomes a LineString placemark and each
// region a Point placemark carrying its risk metadata.
func WriteRouteOverlay(w io.Writer, route *routing.Route) error {
	if route == nil || len(route.Waypoints) == 0 {
		return fmt.Errorf("route has no geometry to render")
	}

	coordinates := make([]kml.Coordinate, len(route.Waypoints))
	for i, point := range route.Waypoints {
		coordinates[i] = kml.Coordinate{Lon: point.Longitude, Lat: point.Latitude}
	}

	children := []kml.Element{
		kml.Name(fmt.Sprintf("Route %s", route.ID)),
		kml.Description(fmt.Sprintf("%.0f m, risk level %s", route.DistanceMeters, route.RiskLevel)),
		kml.Placemark(
			kml.Name("route"),
			kml.LineString(kml.Coordinates(coordinates...)),
		),
	}

	for _, region := range route.RiskRegions {
		children = append(children, regionPlacemark(region))
	}

	doc := kml.KML(kml.Document(children...))
	return doc.WriteIndent(w, "", "  ")
}

// regionPlacemark renders a single risk region
func regionPlacemark(region risk.Region) kml.Element {
	return kml.Placemark(
		kml.Name(region.ID),
		kml.Description(fmt.Sprintf("risk %d (%s), radius %.0f m",
			region.RiskIndex, region.DominantCrimeType, region.RadiusMeters)),
		kml.Point(kml.Coordinates(kml.Coordinate{
			Lon: region.Centroid.Longitude,
			Lat: region.Centroid.Latitude,
		})),
	)
}
