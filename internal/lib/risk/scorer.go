package risk

import (
	"errors"
	"fmt"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
)

var (
	ErrEmptyPolyline    = errors.New("polyline has no points")
	ErrInvalidRiskIndex = errors.New("region risk index must be in [0, 100]")
)

// Warning copy shown alongside scored routes. The high variant is used when
// the route crosses at least one region at or above HighThreshold.
const (
	warningMessage  = "This route passes near areas with reported incidents. Stay aware of your surroundings."
	highRiskMessage = "This route passes through high-risk areas. Consider choosing a safer alternative."
)

// scorer implements the Scorer interface
type scorer struct {
	geoUtils geo.GeoUtils
}

// NewScorer creates a new Scorer implementation
func NewScorer() Scorer {
	return &scorer{geoUtils: geo.NewGeoUtils()}
}

// ScorePolyline computes max and average risk indices for a polyline
func (s *scorer) ScorePolyline(points []geo.Point, regions []Region) (Score, error) {
	if len(points) == 0 {
		return Score{}, ErrEmptyPolyline
	}

	for _, region := range regions {
		if region.RiskIndex < 0 || region.RiskIndex > 100 {
			return Score{}, fmt.Errorf("region %s: %w", region.ID, ErrInvalidRiskIndex)
		}
	}

	maxIndex := 0
	total := 0
	touched := make(map[string]bool)
	var onRoute []Region

	for _, point := range points {
		pointRisk := 0
		for _, region := range regions {
			distance, err := s.geoUtils.PointToPoint(point, region.Centroid)
			if err != nil {
				return Score{}, err
			}
			if distance > region.RadiusMeters {
				continue
			}
			// Overlapping regions: the worst one dominates the point
			if region.RiskIndex > pointRisk {
				pointRisk = region.RiskIndex
			}
			if !touched[region.ID] {
				touched[region.ID] = true
				onRoute = append(onRoute, region)
			}
		}

		if pointRisk > maxIndex {
			maxIndex = pointRisk
		}
		total += pointRisk
	}

	score := Score{
		MaxRiskIndex:     maxIndex,
		AverageRiskIndex: float64(total) / float64(len(points)),
		RegionsOnRoute:   onRoute,
	}

	if maxIndex >= WarningThreshold {
		score.RequiresWarning = true
		if maxIndex >= HighThreshold {
			score.WarningMessage = highRiskMessage
		} else {
			score.WarningMessage = warningMessage
		}
	}

	return score, nil
}

// LevelFor maps a risk index onto the four-bucket scale
func (s *scorer) LevelFor(index int) Level {
	switch {
	case index >= HighThreshold:
		return LevelHigh
	case index >= 50:
		return LevelModerate
	case index >= WarningThreshold:
		return LevelLow
	default:
		return LevelMinimal
	}
}
