package navigation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/guidance"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
)

// fakeAssembler records the arguments of the last recalculation
type fakeAssembler struct {
	route          *routing.Route
	alternatives   []*routing.Route
	err            error
	lastOrigin     geo.Point
	lastPreference routing.Preference
	calls          int
}

func (f *fakeAssembler) ComputeRoute(ctx context.Context, origin, destination geo.Point, preference routing.Preference) (*routing.Route, error) {
	f.calls++
	f.lastOrigin = origin
	f.lastPreference = preference
	if f.err != nil {
		return nil, f.err
	}
	return f.route, nil
}

func (f *fakeAssembler) ComputeAlternatives(ctx context.Context, origin, destination geo.Point, preference routing.Preference) ([]*routing.Route, error) {
	f.lastPreference = preference
	return f.alternatives, nil
}

// testRoute runs due north along the prime meridian, one waypoint roughly
// every 111m
func testRoute(id string) *routing.Route {
	waypoints := []geo.Point{
		{Latitude: 0.000, Longitude: 0},
		{Latitude: 0.001, Longitude: 0},
		{Latitude: 0.002, Longitude: 0},
		{Latitude: 0.003, Longitude: 0},
		{Latitude: 0.004, Longitude: 0},
	}
	return &routing.Route{
		ID:              id,
		Origin:          waypoints[0],
		Destination:     waypoints[len(waypoints)-1],
		Waypoints:       waypoints,
		DistanceMeters:  445,
		DurationSeconds: 600,
		MaxRiskIndex:    40,
		Instructions: []guidance.Instruction{
			{Maneuver: guidance.ManeuverDepart, Text: "Head north", DistanceMeters: 0, Coordinates: waypoints[0]},
			{Maneuver: guidance.ManeuverStraight, Text: "Continue straight", DistanceMeters: 250, Coordinates: waypoints[2]},
			{Maneuver: guidance.ManeuverArrive, Text: "You have arrived", DistanceMeters: 195, Coordinates: waypoints[4]},
		},
	}
}

func startedSession(t *testing.T, f *fakeAssembler, preference routing.Preference) Session {
	t.Helper()
	s := NewSession(f)
	require.NoError(t, s.Start(testRoute("route-1"), preference))
	return s
}

func TestStart(t *testing.T) {
	s := NewSession(&fakeAssembler{})

	require.NoError(t, s.Start(testRoute("route-1"), ""))
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, routing.PreferenceSafest, s.Preference(),
		"Unspecified preference should default to safest")

	assert.ErrorIs(t, s.Start(testRoute("route-2"), ""), ErrAlreadyStarted)
}

func TestStart_InvalidRoute(t *testing.T) {
	s := NewSession(&fakeAssembler{})
	assert.Error(t, s.Start(nil, ""))
	assert.Equal(t, StateCreated, s.State())
}

func TestUpdatePosition_BeforeStart(t *testing.T) {
	s := NewSession(&fakeAssembler{})
	progress := s.UpdatePosition(geo.Point{Latitude: 0.001, Longitude: 0}, 5)
	assert.Empty(t, progress.Traveled)
	assert.Empty(t, progress.Remaining)
}

func TestUpdatePosition_TraveledRemainingSplit(t *testing.T) {
	s := startedSession(t, &fakeAssembler{}, "")
	position := geo.Point{Latitude: 0.002, Longitude: 0.0001}

	progress := s.UpdatePosition(position, 5)

	require.Equal(t, 2, progress.TraveledIndex)
	require.NotEmpty(t, progress.Traveled)
	require.NotEmpty(t, progress.Remaining)

	assert.Equal(t, position, progress.Traveled[len(progress.Traveled)-1],
		"Traveled should end at the current position")
	assert.Equal(t, position, progress.Remaining[0],
		"Remaining should start at the current position")

	// The two halves together cover every waypoint, sharing only the
	// nearest waypoint and the current position as join points
	waypoints := s.Route().Waypoints
	assert.Equal(t, waypoints[:3], progress.Traveled[:len(progress.Traveled)-1])
	assert.Equal(t, waypoints[2:], progress.Remaining[1:])
}

func TestUpdatePosition_InstructionIndexIsMonotonic(t *testing.T) {
	s := startedSession(t, &fakeAssembler{}, "")

	first := s.UpdatePosition(geo.Point{Latitude: 0.001, Longitude: 0}, 5)
	second := s.UpdatePosition(geo.Point{Latitude: 0.003, Longitude: 0}, 5)
	assert.GreaterOrEqual(t, second.CurrentInstructionIndex, first.CurrentInstructionIndex)

	// GPS noise snaps the nearest waypoint backward; the instruction
	// pointer must not rewind with it
	noisy := s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0}, 5)
	assert.Equal(t, 2, noisy.TraveledIndex)
	assert.GreaterOrEqual(t, noisy.CurrentInstructionIndex, second.CurrentInstructionIndex,
		"Instruction index should never regress on backward GPS noise")
}

func TestCheckDeviation_OnRoute(t *testing.T) {
	s := startedSession(t, &fakeAssembler{}, "")

	// About 20m east of the polyline, well inside the threshold
	s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0.00018}, 5)

	deviated, err := s.CheckDeviation(context.Background())
	require.NoError(t, err)
	assert.False(t, deviated)
	assert.Equal(t, "route-1", s.Route().ID, "On-route position should keep the current route")
}

func TestCheckDeviation_PreservesPreference(t *testing.T) {
	f := &fakeAssembler{route: testRoute("route-2")}
	s := startedSession(t, f, routing.PreferenceFastest)

	// About 45m east of the polyline
	s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0.0004}, 5)

	deviated, err := s.CheckDeviation(context.Background())
	require.NoError(t, err)
	assert.True(t, deviated)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, routing.PreferenceFastest, f.lastPreference,
		"Recalculation must reuse the session's original preference")
	assert.Equal(t, "route-2", s.Route().ID, "Recalculated route should be installed")
	assert.Equal(t, StateActive, s.State())

	progress := s.UpdatePosition(s.Route().Waypoints[0], 5)
	assert.Equal(t, 0, progress.TraveledIndex, "Progress should reset on the new route")
}

func TestCheckDeviation_RecalculationFailed(t *testing.T) {
	f := &fakeAssembler{err: errors.New("provider down")}
	s := startedSession(t, f, "")

	s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0.0004}, 5)

	deviated, err := s.CheckDeviation(context.Background())
	assert.True(t, deviated)
	assert.ErrorIs(t, err, ErrRecalculationFailed)
	assert.Equal(t, "route-1", s.Route().ID,
		"Failed recalculation should keep navigating on the stale route")
	assert.Equal(t, StateActive, s.State())
}

func TestCheckTrafficUpdate(t *testing.T) {
	faster := testRoute("route-fast")
	faster.DurationSeconds = 400

	f := &fakeAssembler{alternatives: []*routing.Route{faster}}
	s := startedSession(t, f, "")

	pending, err := s.CheckTrafficUpdate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "route-fast", pending.ID)
	assert.Equal(t, "route-1", s.Route().ID,
		"A traffic alternative must never auto-replace the active route")
	assert.Equal(t, pending, s.PendingAlternative())
}

func TestCheckTrafficUpdate_IgnoresMarginalCandidates(t *testing.T) {
	similar := testRoute("route-similar")
	similar.DurationSeconds = 590
	similar.MaxRiskIndex = 38

	f := &fakeAssembler{alternatives: []*routing.Route{similar}}
	s := startedSession(t, f, "")

	pending, err := s.CheckTrafficUpdate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pending, "A candidate barely different from the current route should not surface")
	assert.Nil(t, s.PendingAlternative())
}

func TestAcceptAlternativeRoute(t *testing.T) {
	safer := testRoute("route-safe")
	safer.MaxRiskIndex = 10

	f := &fakeAssembler{alternatives: []*routing.Route{safer}}
	s := startedSession(t, f, "")

	_, err := s.CheckTrafficUpdate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.PendingAlternative())

	s.AcceptAlternativeRoute()
	assert.Equal(t, "route-safe", s.Route().ID)
	assert.Nil(t, s.PendingAlternative())
}

func TestRejectAlternativeRoute(t *testing.T) {
	faster := testRoute("route-fast")
	faster.DurationSeconds = 400

	f := &fakeAssembler{alternatives: []*routing.Route{faster}}
	s := startedSession(t, f, "")

	_, err := s.CheckTrafficUpdate(context.Background())
	require.NoError(t, err)

	s.RejectAlternativeRoute()
	assert.Equal(t, "route-1", s.Route().ID)
	assert.Nil(t, s.PendingAlternative())
}

func TestCheckAlerts_DedupSurvivesRecalculation(t *testing.T) {
	f := &fakeAssembler{route: testRoute("route-2")}
	s := startedSession(t, f, "")

	region := risk.Region{
		ID:                "hotspot",
		Centroid:          geo.Point{Latitude: 0.0025, Longitude: 0},
		RadiusMeters:      100,
		RiskIndex:         80,
		DominantCrimeType: "robbery",
	}
	prefs := alerts.Preferences{Enabled: true}

	s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0}, 0)
	first := s.CheckAlerts([]risk.Region{region}, prefs)
	require.Len(t, first, 1)

	// Deviate and recalculate onto a new route
	s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0.0004}, 0)
	deviated, err := s.CheckDeviation(context.Background())
	require.NoError(t, err)
	require.True(t, deviated)

	s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0}, 0)
	second := s.CheckAlerts([]risk.Region{region}, prefs)
	assert.Empty(t, second, "A region alerted before recalculation must not alert again")
}

func TestEnd(t *testing.T) {
	s := startedSession(t, &fakeAssembler{}, "")
	s.UpdatePosition(geo.Point{Latitude: 0.001, Longitude: 0}, 5)

	s.End()
	assert.Equal(t, StateEnded, s.State())
	assert.Nil(t, s.Route())

	// Late-arriving events during teardown are absorbed silently
	progress := s.UpdatePosition(geo.Point{Latitude: 0.002, Longitude: 0}, 5)
	assert.Empty(t, progress.Traveled)

	deviated, err := s.CheckDeviation(context.Background())
	assert.False(t, deviated)
	assert.NoError(t, err)

	pending, err := s.CheckTrafficUpdate(context.Background())
	assert.Nil(t, pending)
	assert.NoError(t, err)
}
