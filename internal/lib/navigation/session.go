package navigation

import (
	"context"
	"fmt"

	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
)

// Thresholds for surfacing a traffic-update alternative. A candidate must
// beat the current route on time or on risk by at least this much before it
// is worth interrupting the traveler.
const (
	alternativeMinTimeGainRatio = 0.10
	alternativeMinRiskDelta     = 10
)

// session implements the Session interface
type session struct {
	assembler   routing.Assembler
	geoUtils    geo.GeoUtils
	alertEngine alerts.Engine

	state      State
	route      *routing.Route
	preference routing.Preference

	position    geo.Point
	speedKmh    float64
	hasPosition bool

	traveledIndex           int
	currentInstructionIndex int

	// waypointOffsets[i] is the distance from the route origin to waypoint i
	waypointOffsets []float64
	// instructionOffsets[i] is the distance from the route origin to the
	// point where instruction i applies
	instructionOffsets []float64

	pendingAlternative *routing.Route

	// alerted regions survive recalculation so the same region never
	// alerts twice within one trip
	alerted map[string]bool

	// generation stamps in-flight recalculations so a result arriving
	// after End is discarded
	generation uint64
}

// NewSession creates a Session in the Created state
func NewSession(assembler routing.Assembler) Session {
	return &session{
		assembler:   assembler,
		geoUtils:    geo.NewGeoUtils(),
		alertEngine: alerts.NewEngine(),
		state:       StateCreated,
		alerted:     make(map[string]bool),
	}
}

// Start installs the route and activates the session
func (s *session) Start(route *routing.Route, preference routing.Preference) error {
	if s.state == StateEnded {
		return nil
	}
	if s.state != StateCreated {
		return ErrAlreadyStarted
	}
	if route == nil || len(route.Waypoints) < 2 {
		return routing.ErrRouteUnavailable
	}

	s.preference = preference.OrDefault()
	s.installRoute(route)
	s.state = StateActive
	return nil
}

// UpdatePosition records the traveler's position and recomputes progress
func (s *session) UpdatePosition(point geo.Point, speedKmh float64) Progress {
	if s.state != StateActive && s.state != StateRecalculating {
		return Progress{}
	}
	if !geo.IsValidCoordinate(point) {
		return s.snapshot()
	}

	s.position = point
	s.speedKmh = speedKmh
	s.hasPosition = true

	idx, err := s.geoUtils.NearestPointIndex(point, s.route.Waypoints)
	if err != nil {
		return s.snapshot()
	}
	s.traveledIndex = idx

	// The instruction pointer advances monotonically; GPS noise that moves
	// the nearest waypoint backward must not rewind it.
	if computed := s.instructionIndexAt(s.waypointOffsets[idx]); computed > s.currentInstructionIndex {
		s.currentInstructionIndex = computed
	}

	return s.snapshot()
}

// CheckDeviation flags off-route travel and recalculates from the current
// position, reusing the session's fixed preference
func (s *session) CheckDeviation(ctx context.Context) (bool, error) {
	if s.state != StateActive || !s.hasPosition {
		return false, nil
	}

	distance, err := s.geoUtils.PointToPolyline(s.position, geo.Polyline{Points: s.route.Waypoints})
	if err != nil || distance <= DeviationThresholdMeters {
		return false, nil
	}

	s.state = StateRecalculating
	gen := s.generation

	newRoute, err := s.assembler.ComputeRoute(ctx, s.position, s.route.Destination, s.preference)

	if s.state == StateEnded || gen != s.generation {
		// the session ended while the recalculation was in flight
		return true, nil
	}
	s.state = StateActive

	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrRecalculationFailed, err)
	}

	s.installRoute(newRoute)
	return true, nil
}

// CheckTrafficUpdate surfaces a meaningfully better alternative, if any
func (s *session) CheckTrafficUpdate(ctx context.Context) (*routing.Route, error) {
	if s.state != StateActive {
		return nil, nil
	}

	origin := s.route.Origin
	if s.hasPosition {
		origin = s.position
	}

	candidates, err := s.assembler.ComputeAlternatives(ctx, origin, s.route.Destination, s.preference)
	if err != nil || len(candidates) == 0 {
		return nil, nil
	}

	for _, candidate := range candidates {
		if s.meaningfullyBetter(candidate) {
			s.pendingAlternative = candidate
			return candidate, nil
		}
	}
	return nil, nil
}

// AcceptAlternativeRoute installs the pending alternative and resets progress
func (s *session) AcceptAlternativeRoute() {
	if s.state != StateActive || s.pendingAlternative == nil {
		return
	}
	s.installRoute(s.pendingAlternative)
	s.pendingAlternative = nil
}

// RejectAlternativeRoute discards the pending alternative
func (s *session) RejectAlternativeRoute() {
	s.pendingAlternative = nil
}

// CheckAlerts evaluates nearby regions at the last known position and speed
func (s *session) CheckAlerts(regions []risk.Region, prefs alerts.Preferences) []alerts.Alert {
	if s.state != StateActive || !s.hasPosition {
		return nil
	}
	return s.alertEngine.CheckAlertConditions(s.position, s.speedKmh, regions, s.alerted, prefs)
}

// End moves the session to its terminal state and clears held state
func (s *session) End() {
	s.state = StateEnded
	s.generation++
	s.route = nil
	s.pendingAlternative = nil
	s.hasPosition = false
	s.waypointOffsets = nil
	s.instructionOffsets = nil
}

func (s *session) State() State { return s.state }

func (s *session) Route() *routing.Route { return s.route }

func (s *session) Preference() routing.Preference { return s.preference }

func (s *session) PendingAlternative() *routing.Route { return s.pendingAlternative }

// installRoute swaps in a route and resets progress pointers
func (s *session) installRoute(route *routing.Route) {
	s.route = route
	s.traveledIndex = 0
	s.currentInstructionIndex = 0

	s.waypointOffsets = make([]float64, len(route.Waypoints))
	for i := 1; i < len(route.Waypoints); i++ {
		step, err := s.geoUtils.PointToPoint(route.Waypoints[i-1], route.Waypoints[i])
		if err != nil {
			step = 0
		}
		s.waypointOffsets[i] = s.waypointOffsets[i-1] + step
	}

	s.instructionOffsets = make([]float64, len(route.Instructions))
	var total float64
	for i, instruction := range route.Instructions {
		total += instruction.DistanceMeters
		s.instructionOffsets[i] = total
	}
}

// instructionIndexAt finds the first instruction still ahead of the given
// distance from the route origin
func (s *session) instructionIndexAt(traveledDistance float64) int {
	for i, offset := range s.instructionOffsets {
		if offset > traveledDistance {
			return i
		}
	}
	if len(s.instructionOffsets) == 0 {
		return 0
	}
	return len(s.instructionOffsets) - 1
}

// meaningfullyBetter reports whether a candidate improves enough on the
// current route to bother the traveler with it
func (s *session) meaningfullyBetter(candidate *routing.Route) bool {
	current := s.route
	if current.DurationSeconds > 0 {
		gain := float64(current.DurationSeconds-candidate.DurationSeconds) / float64(current.DurationSeconds)
		if gain >= alternativeMinTimeGainRatio {
			return true
		}
	}
	return candidate.MaxRiskIndex <= current.MaxRiskIndex-alternativeMinRiskDelta
}

// snapshot builds the traveled/remaining split at the current position
func (s *session) snapshot() Progress {
	if s.route == nil || !s.hasPosition {
		return Progress{}
	}

	waypoints := s.route.Waypoints
	idx := s.traveledIndex

	traveled := make([]geo.Point, 0, idx+2)
	traveled = append(traveled, waypoints[:idx+1]...)
	traveled = append(traveled, s.position)

	remaining := make([]geo.Point, 0, len(waypoints)-idx+1)
	remaining = append(remaining, s.position)
	remaining = append(remaining, waypoints[idx:]...)

	return Progress{
		TraveledIndex:           idx,
		CurrentInstructionIndex: s.currentInstructionIndex,
		Traveled:                traveled,
		Remaining:               remaining,
		PercentTraveled:         s.geoUtils.ProgressPercent(waypoints, s.position),
	}
}
