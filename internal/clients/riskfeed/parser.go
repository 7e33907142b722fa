package riskfeed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// Regions without an explicit radius fall back to this coverage
const defaultRadiusMeters = 250.0

// HTTPDoer abstracts the HTTP client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeedParser downloads and parses the municipal crime-heatmap KML feed into
// risk regions. It implements routing.RegionSource.
type FeedParser struct {
	feedURL    string
	httpClient HTTPDoer
}

// NewFeedParser creates a parser for the given KML feed
func NewFeedParser(feedURL string) *FeedParser {
	return &FeedParser{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewFeedParserWithHTTPDoer creates a parser with a custom HTTP implementation
func NewFeedParserWithHTTPDoer(feedURL string, doer HTTPDoer) *FeedParser {
	return &FeedParser{feedURL: feedURL, httpClient: doer}
}

// KML subset the feed actually uses. Each region is a Placemark with a Point
// and risk metadata carried in ExtendedData.
type kmlFile struct {
	XMLName  xml.Name    `xml:"kml"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Folders    []kmlFolder    `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlFolder struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	ID           string          `xml:"id,attr"`
	Name         string          `xml:"name"`
	Point        *kmlPoint       `xml:"Point"`
	ExtendedData kmlExtendedData `xml:"ExtendedData"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlExtendedData struct {
	Data []kmlData `xml:"Data"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// GetRegionsNear downloads the feed and returns the regions inside bounds
func (p *FeedParser) GetRegionsNear(ctx context.Context, bounds geo.BoundingBox) ([]risk.Region, error) {
	regions, err := p.ParseFeed(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []risk.Region
	for _, region := range regions {
		if bounds.Contains(region.Centroid) {
			filtered = append(filtered, region)
		}
	}
	return filtered, nil
}

// ParseFeed downloads and parses the full KML feed
func (p *FeedParser) ParseFeed(ctx context.Context) ([]risk.Region, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download KML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d downloading KML from %s", resp.StatusCode, p.feedURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read KML response: %w", err)
	}

	return parseRegions(data)
}

// parseRegions converts raw KML into risk regions, skipping malformed
// placemarks rather than failing the whole feed
func parseRegions(data []byte) ([]risk.Region, error) {
	var file kmlFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse KML: %w", err)
	}

	placemarks := file.Document.Placemarks
	for _, folder := range file.Document.Folders {
		placemarks = append(placemarks, folder.Placemarks...)
	}

	var regions []risk.Region
	for _, placemark := range placemarks {
		region, ok := processPlacemark(placemark)
		if !ok {
			continue
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// processPlacemark maps one placemark to a risk region
func processPlacemark(placemark kmlPlacemark) (risk.Region, bool) {
	if placemark.Point == nil {
		return risk.Region{}, false
	}

	centroid, ok := parseCoordinates(placemark.Point.Coordinates)
	if !ok || !geo.IsValidCoordinate(centroid) {
		return risk.Region{}, false
	}

	meta := placemark.ExtendedData.lookup()

	riskIndex, err := strconv.Atoi(meta["risk_index"])
	if err != nil || riskIndex < 0 || riskIndex > 100 {
		return risk.Region{}, false
	}

	radius := defaultRadiusMeters
	if raw, exists := meta["radius_meters"]; exists {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	id := placemark.ID
	if id == "" {
		id = placemark.Name
	}
	if id == "" {
		return risk.Region{}, false
	}

	return risk.Region{
		ID:                id,
		Centroid:          centroid,
		RadiusMeters:      radius,
		RiskIndex:         riskIndex,
		DominantCrimeType: meta["crime_type"],
	}, true
}

// parseCoordinates reads the KML "longitude,latitude[,altitude]" format
func parseCoordinates(raw string) (geo.Point, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) < 2 {
		return geo.Point{}, false
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, false
	}

	return geo.Point{Latitude: lat, Longitude: lng}, true
}

func (e kmlExtendedData) lookup() map[string]string {
	meta := make(map[string]string, len(e.Data))
	for _, d := range e.Data {
		meta[d.Name] = d.Value
	}
	return meta
}
