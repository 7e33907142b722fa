package pathfinder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
)

// Default number of candidate paths requested when alternatives are wanted
const defaultAlternativeCount = 3

// HTTPDoer abstracts the HTTP client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the external pathfinding service over HTTP. It implements
// routing.PathProvider; retries and risk scoring happen elsewhere.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a pathfinder client for the given backend
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP implementation
func NewClientWithHTTPDoer(baseURL, apiKey string, doer HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: doer,
	}
}

// pathRequest is the wire request for path computation
type pathRequest struct {
	Origin       wirePoint `json:"origin"`
	Destination  wirePoint `json:"destination"`
	Mode         string    `json:"mode"`
	PreferSafe   bool      `json:"prefer_safe"`
	Alternatives int       `json:"alternatives,omitempty"`
}

type wirePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// pathResponse is the wire response from the pathfinding service
type pathResponse struct {
	Paths []wirePath `json:"paths"`
}

type wirePath struct {
	Polyline        string  `json:"polyline"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int     `json:"duration_seconds"`
}

// GetRoute requests a single walking path
func (c *Client) GetRoute(ctx context.Context, origin, destination geo.Point, preferSafe bool) (routing.RawPath, error) {
	paths, err := c.computePaths(ctx, origin, destination, preferSafe, 0)
	if err != nil {
		return routing.RawPath{}, err
	}
	if len(paths) == 0 {
		return routing.RawPath{}, fmt.Errorf("no paths found in response")
	}
	return paths[0], nil
}

// GetAlternatives requests multiple candidate walking paths
func (c *Client) GetAlternatives(ctx context.Context, origin, destination geo.Point, preferSafe bool) ([]routing.RawPath, error) {
	return c.computePaths(ctx, origin, destination, preferSafe, defaultAlternativeCount)
}

// computePaths performs the HTTP round trip shared by both operations
func (c *Client) computePaths(ctx context.Context, origin, destination geo.Point, preferSafe bool, alternatives int) ([]routing.RawPath, error) {
	requestBody := pathRequest{
		Origin:       wirePoint{Latitude: origin.Latitude, Longitude: origin.Longitude},
		Destination:  wirePoint{Latitude: destination.Latitude, Longitude: destination.Longitude},
		Mode:         "walking",
		PreferSafe:   preferSafe,
		Alternatives: alternatives,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/paths:compute", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response pathResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	paths := make([]routing.RawPath, 0, len(response.Paths))
	for _, p := range response.Paths {
		if p.Polyline == "" {
			continue
		}
		paths = append(paths, routing.RawPath{
			Polyline:        p.Polyline,
			DistanceMeters:  p.DistanceMeters,
			DurationSeconds: p.DurationSeconds,
		})
	}
	return paths, nil
}
