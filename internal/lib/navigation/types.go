package navigation

import (
	"context"
	"errors"

	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
)

// State is the session lifecycle state
type State string

const (
	StateCreated       State = "created"
	StateActive        State = "active"
	StateRecalculating State = "recalculating"
	StateEnded         State = "ended"
)

// DeviationThresholdMeters is how far off the route a traveler may drift
// before a recalculation is triggered. Exactly on the threshold is still
// on-route.
const DeviationThresholdMeters = 30.0

var (
	// ErrSessionNotStarted is returned by operations that need an active route
	ErrSessionNotStarted = errors.New("session not started")
	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("session already started")
	// ErrRecalculationFailed means a deviation was detected but no new route
	// could be computed; the session keeps navigating on the stale route
	ErrRecalculationFailed = errors.New("recalculation failed")
)

// Progress is the traveler's position projected onto the active route
type Progress struct {
	// TraveledIndex is the index of the nearest route waypoint
	TraveledIndex int `json:"traveled_index"`
	// CurrentInstructionIndex never regresses, even when GPS noise moves
	// the nearest waypoint backward
	CurrentInstructionIndex int `json:"current_instruction_index"`
	// Traveled is the covered part of the polyline with the current
	// position appended for visual continuity
	Traveled []geo.Point `json:"traveled"`
	// Remaining is the current position prepended to the rest of the
	// polyline
	Remaining       []geo.Point `json:"remaining"`
	PercentTraveled float64     `json:"percent_traveled"`
}

// Session is a single trip's navigation state machine. A session is owned
// by one caller; its methods are not safe for concurrent use.
type Session interface {
	// Start installs the route and activates the session. The preference
	// is fixed for the session's lifetime; every later recalculation
	// reuses it.
	Start(route *routing.Route, preference routing.Preference) error

	// UpdatePosition records the traveler's position and speed and
	// recomputes route progress. After End it is a silent no-op returning
	// an empty Progress.
	UpdatePosition(point geo.Point, speedKmh float64) Progress

	// CheckDeviation reports whether the traveler is off-route and, when
	// so, recalculates from the current position. A failed recalculation
	// returns true with ErrRecalculationFailed and keeps the stale route.
	CheckDeviation(ctx context.Context) (bool, error)

	// CheckTrafficUpdate asks for an alternative route and surfaces it as
	// the pending alternative when it differs meaningfully from the
	// current one. It never replaces the active route by itself.
	CheckTrafficUpdate(ctx context.Context) (*routing.Route, error)

	// AcceptAlternativeRoute installs the pending alternative as the
	// active route and resets progress. No-op without a pending route.
	AcceptAlternativeRoute()

	// RejectAlternativeRoute discards the pending alternative
	RejectAlternativeRoute()

	// CheckAlerts evaluates nearby risk regions at the last known position
	// and speed. Each region alerts at most once per session, including
	// across recalculations.
	CheckAlerts(regions []risk.Region, prefs alerts.Preferences) []alerts.Alert

	// End moves the session to its terminal state and clears route and
	// position state. Further mutations are silent no-ops.
	End()

	State() State
	Route() *routing.Route
	Preference() routing.Preference
	PendingAlternative() *routing.Route
}

// NewSession is implemented in session.go
