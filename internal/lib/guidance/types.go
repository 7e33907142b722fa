package guidance

import (
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
)

// Maneuver is the closed set of turning actions attached to route instructions
type Maneuver string

const (
	ManeuverDepart          Maneuver = "depart"
	ManeuverArrive          Maneuver = "arrive"
	ManeuverStraight        Maneuver = "straight"
	ManeuverTurnSlightLeft  Maneuver = "turn-slight-left"
	ManeuverTurnLeft        Maneuver = "turn-left"
	ManeuverTurnSharpLeft   Maneuver = "turn-sharp-left"
	ManeuverTurnSlightRight Maneuver = "turn-slight-right"
	ManeuverTurnRight       Maneuver = "turn-right"
	ManeuverTurnSharpRight  Maneuver = "turn-sharp-right"
	ManeuverUTurn           Maneuver = "uturn"
)

// Instruction is a single human-navigable maneuver along a route.
// DistanceMeters is the distance to travel from the previous instruction
// point to this one.
type Instruction struct {
	Maneuver       Maneuver  `json:"maneuver"`
	Text           string    `json:"text"`
	DistanceMeters float64   `json:"distance"`
	Coordinates    geo.Point `json:"coordinates"`
}

// Synthesizer converts a dense waypoint polyline into a short list of
// discrete maneuver instructions. Synthesis is deterministic: the same
// polyline always produces the same instruction list.
type Synthesizer interface {
	Synthesize(points []geo.Point) ([]Instruction, error)
}

// NewSynthesizer is implemented in synthesizer.go
