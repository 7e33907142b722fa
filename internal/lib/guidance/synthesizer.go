package guidance

import (
	"errors"
	"fmt"
	"math"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
)

// Emission thresholds, tuned for pedestrian routes
const (
	significantTurnDegrees = 15.0   // below this a bend is not worth announcing
	minSpacingMeters       = 100.0  // minimum distance between announced turns
	forcedBreakMeters      = 2000.0 // break up long straight stretches
	leftoverMeters         = 50.0   // trailing distance worth a final "continue"
)

// Maneuver classification boundaries in degrees of bearing delta
const (
	straightMaxDegrees = 30.0
	slightMaxDegrees   = 60.0
	sharpMinDegrees    = 120.0
	uturnMinDegrees    = 150.0
)

var ErrTooFewPoints = errors.New("polyline needs at least 2 points")

// synthesizer implements the Synthesizer interface
type synthesizer struct {
	geoUtils geo.GeoUtils
}

// NewSynthesizer creates a new Synthesizer implementation
func NewSynthesizer() Synthesizer {
	return &synthesizer{geoUtils: geo.NewGeoUtils()}
}

// Synthesize walks consecutive waypoint triples and emits an instruction
// whenever the bearing changes enough, enough distance has accumulated, or
// the route is about to end. The result always starts with depart and ends
// with arrive.
func (s *synthesizer) Synthesize(points []geo.Point) ([]Instruction, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	for _, p := range points {
		if !geo.IsValidCoordinate(p) {
			return nil, geo.ErrInvalidCoordinate
		}
	}

	origin := points[0]
	destination := points[len(points)-1]

	instructions := []Instruction{s.departInstruction(origin, points)}

	// With zero or one waypoint between origin and destination there is
	// nothing to announce: the route collapses to depart/arrive.
	if len(points) > 3 {
		instructions = append(instructions, s.walkTriples(points)...)
	}

	instructions = append(instructions, Instruction{
		Maneuver:       ManeuverArrive,
		Text:           "You have arrived at your destination",
		DistanceMeters: 0,
		Coordinates:    destination,
	})

	return instructions, nil
}

// walkTriples emits interior instructions for polylines with at least two
// waypoints between origin and destination.
func (s *synthesizer) walkTriples(points []geo.Point) []Instruction {
	var emitted []Instruction
	accumulated := 0.0
	secondToLast := len(points) - 2

	for i := 1; i <= secondToLast; i++ {
		prev, curr, next := points[i-1], points[i], points[i+1]

		segment, _ := s.geoUtils.PointToPoint(prev, curr)
		accumulated += segment

		bearingIn, _ := s.geoUtils.Bearing(prev, curr)
		bearingOut, _ := s.geoUtils.Bearing(curr, next)
		delta := s.geoUtils.BearingDelta(bearingIn, bearingOut)

		turning := math.Abs(delta) > significantTurnDegrees
		significantTurn := turning && accumulated > minSpacingMeters
		forcedBreak := accumulated > forcedBreakMeters
		// The minimum-spacing rule is waived for a turn at the second-to-last
		// point: skipping it would leave the traveler unannounced at arrival.
		beforeArrival := turning && i == secondToLast

		if !significantTurn && !forcedBreak && !beforeArrival {
			continue
		}

		maneuver := classifyManeuver(delta)
		emitted = append(emitted, Instruction{
			Maneuver:       maneuver,
			Text:           instructionText(maneuver, accumulated),
			DistanceMeters: accumulated,
			Coordinates:    curr,
		})
		accumulated = 0
	}

	// The final leg from the second-to-last point to the destination was
	// never accumulated by the loop. Announce it when something was already
	// emitted mid-route; a route that never turned collapses to depart/arrive.
	final, _ := s.geoUtils.PointToPoint(points[len(points)-2], points[len(points)-1])
	accumulated += final
	if len(emitted) > 0 && accumulated > leftoverMeters {
		emitted = append(emitted, Instruction{
			Maneuver:       ManeuverStraight,
			Text:           instructionText(ManeuverStraight, accumulated),
			DistanceMeters: accumulated,
			Coordinates:    points[len(points)-1],
		})
	}

	return emitted
}

// departInstruction builds the depart instruction. There is no previous
// bearing at the origin, so the heading is described by absolute bearing
// quadrant instead of a turn classification.
func (s *synthesizer) departInstruction(origin geo.Point, points []geo.Point) Instruction {
	bearing, _ := s.geoUtils.Bearing(points[0], points[1])
	return Instruction{
		Maneuver:       ManeuverDepart,
		Text:           "Head " + cardinalDirection(bearing),
		DistanceMeters: 0,
		Coordinates:    origin,
	}
}

// classifyManeuver maps a signed bearing delta onto the closed maneuver set.
// The exhaustive ladder has a single default: anything that is not a real
// turn reads as straight.
func classifyManeuver(delta float64) Maneuver {
	abs := math.Abs(delta)

	switch {
	case abs > uturnMinDegrees:
		return ManeuverUTurn
	case abs >= sharpMinDegrees:
		if delta > 0 {
			return ManeuverTurnSharpRight
		}
		return ManeuverTurnSharpLeft
	case abs >= slightMaxDegrees:
		if delta > 0 {
			return ManeuverTurnRight
		}
		return ManeuverTurnLeft
	case abs >= straightMaxDegrees:
		if delta > 0 {
			return ManeuverTurnSlightRight
		}
		return ManeuverTurnSlightLeft
	default:
		return ManeuverStraight
	}
}

// instructionText renders the template for a maneuver with the distance
// accumulated since the previous instruction.
func instructionText(maneuver Maneuver, distanceMeters float64) string {
	distance := FormatDistance(distanceMeters)

	switch maneuver {
	case ManeuverStraight:
		return fmt.Sprintf("Continue straight for %s", distance)
	case ManeuverTurnSlightLeft:
		return fmt.Sprintf("In %s, turn slightly left", distance)
	case ManeuverTurnLeft:
		return fmt.Sprintf("In %s, turn left", distance)
	case ManeuverTurnSharpLeft:
		return fmt.Sprintf("In %s, turn sharply left", distance)
	case ManeuverTurnSlightRight:
		return fmt.Sprintf("In %s, turn slightly right", distance)
	case ManeuverTurnRight:
		return fmt.Sprintf("In %s, turn right", distance)
	case ManeuverTurnSharpRight:
		return fmt.Sprintf("In %s, turn sharply right", distance)
	case ManeuverUTurn:
		return fmt.Sprintf("In %s, make a U-turn", distance)
	default:
		return fmt.Sprintf("Continue for %s", distance)
	}
}

// FormatDistance renders meters as "X m" below 1km and "X.Y km" above
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// cardinalDirection buckets an absolute bearing into a compass quadrant
func cardinalDirection(bearing float64) string {
	switch {
	case bearing >= 315 || bearing < 45:
		return "north"
	case bearing < 135:
		return "east"
	case bearing < 225:
		return "south"
	default:
		return "west"
	}
}
