package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Stanux/walking-safely-sub002/internal/config"
	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/navigation"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
	"github.com/Stanux/walking-safely-sub002/internal/observability"
)

// ErrSessionNotFound is returned for unknown or already-ended session ids
var ErrSessionNotFound = errors.New("session not found")

// Margin around the traveler's position when querying risk regions for
// proximity alerts
const alertRegionMarginMeters = 1000.0

// EventPublisher receives navigation events for the notification layer.
// Implementations must tolerate being called from multiple goroutines.
type EventPublisher interface {
	PublishAlert(ctx context.Context, sessionID string, alert alerts.Alert) error
	PublishRecalculated(ctx context.Context, sessionID string, route *routing.Route) error
	PublishRecalculationFailed(ctx context.Context, sessionID string) error
}

// PositionResult is the outcome of applying one position update
type PositionResult struct {
	Progress            navigation.Progress `json:"progress"`
	Deviated            bool                `json:"deviated"`
	Recalculated        bool                `json:"recalculated"`
	RecalculationFailed bool                `json:"recalculation_failed"`
	Route               *routing.Route      `json:"route,omitempty"`
	Alerts              []alerts.Alert      `json:"alerts,omitempty"`
}

// managedSession serializes access to one session. Sessions themselves are
// not thread-safe; the mutex is the single-writer guarantee.
type managedSession struct {
	mu         sync.Mutex
	session    navigation.Session
	alertPrefs alerts.Preferences
	lastUpdate time.Time
}

// NavigationService owns the active sessions and drives their lifecycle
type NavigationService struct {
	routes    *RouteService
	assembler routing.Assembler
	regions   routing.RegionSource
	publisher EventPublisher
	metrics   *observability.Metrics
	config    *config.NavigationConfig

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewNavigationService creates a new NavigationService. The publisher may be
// nil when event publishing is not configured.
func NewNavigationService(routes *RouteService, assembler routing.Assembler, regions routing.RegionSource, publisher EventPublisher, metrics *observability.Metrics, cfg *config.NavigationConfig) *NavigationService {
	return &NavigationService{
		routes:    routes,
		assembler: assembler,
		regions:   regions,
		publisher: publisher,
		metrics:   metrics,
		config:    cfg,
		sessions:  make(map[string]*managedSession),
	}
}

// StartSession computes a route and starts navigating it. It returns the new
// session id alongside the route.
func (s *NavigationService) StartSession(ctx context.Context, origin, destination geo.Point, preference routing.Preference, alertPrefs alerts.Preferences) (string, *routing.Route, error) {
	route, err := s.routes.ComputeRoute(ctx, origin, destination, preference)
	if err != nil {
		return "", nil, err
	}

	session := navigation.NewSession(s.assembler)
	if err := session.Start(route, preference); err != nil {
		return "", nil, err
	}

	sessionID := uuid.NewString()
	s.mu.Lock()
	s.sessions[sessionID] = &managedSession{
		session:    session,
		alertPrefs: alertPrefs,
		lastUpdate: time.Now(),
	}
	s.mu.Unlock()

	s.metrics.ActiveSessions.Inc()
	log.Printf("Started navigation session %s (%s)", sessionID, session.Preference())
	return sessionID, route, nil
}

// UpdatePosition applies one position update: progress, deviation handling
// and proximity alerts
func (s *NavigationService) UpdatePosition(ctx context.Context, sessionID string, point geo.Point, speedKmh float64) (*PositionResult, error) {
	managed, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	managed.lastUpdate = time.Now()

	result := &PositionResult{
		Progress: managed.session.UpdatePosition(point, speedKmh),
	}

	deviated, err := managed.session.CheckDeviation(ctx)
	result.Deviated = deviated
	if deviated {
		s.metrics.Recalculations.Inc()
		if err != nil {
			s.metrics.RecalculationFailures.Inc()
			result.RecalculationFailed = true
			log.Printf("Session %s: %v", sessionID, err)
			s.publishRecalculationFailed(ctx, sessionID)
		} else {
			result.Recalculated = true
			result.Progress = managed.session.UpdatePosition(point, speedKmh)
			s.publishRecalculated(ctx, sessionID, managed.session.Route())
		}
	}
	result.Route = managed.session.Route()

	result.Alerts = s.checkAlerts(ctx, sessionID, managed, point)
	return result, nil
}

// checkAlerts queries regions around the position and runs the proximity
// check under the session lock
func (s *NavigationService) checkAlerts(ctx context.Context, sessionID string, managed *managedSession, point geo.Point) []alerts.Alert {
	if !managed.alertPrefs.Enabled {
		return nil
	}

	bounds := geo.BoundsAround([]geo.Point{point}, alertRegionMarginMeters)
	regions, err := s.regions.GetRegionsNear(ctx, bounds)
	if err != nil {
		log.Printf("Session %s: failed to load regions for alerting: %v", sessionID, err)
		return nil
	}

	triggered := managed.session.CheckAlerts(regions, managed.alertPrefs)
	for _, alert := range triggered {
		s.metrics.AlertsEmitted.Inc()
		if s.publisher != nil {
			if err := s.publisher.PublishAlert(ctx, sessionID, alert); err != nil {
				log.Printf("Session %s: failed to publish alert: %v", sessionID, err)
			}
		}
	}
	return triggered
}

// CheckTrafficUpdates runs one pass of the periodic alternative-route check
// over every active session
func (s *NavigationService) CheckTrafficUpdates(ctx context.Context) {
	for sessionID, managed := range s.snapshot() {
		managed.mu.Lock()
		pending, err := managed.session.CheckTrafficUpdate(ctx)
		managed.mu.Unlock()

		if err != nil {
			log.Printf("Session %s: traffic check failed: %v", sessionID, err)
			continue
		}
		if pending != nil {
			log.Printf("Session %s: alternative route %s available", sessionID, pending.ID)
		}
	}
}

// RunTrafficChecker drives periodic traffic checks and idle-session eviction
// until the context is cancelled
func (s *NavigationService) RunTrafficChecker(ctx context.Context) {
	ticker := time.NewTicker(s.config.TrafficCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckTrafficUpdates(ctx)
			s.evictIdleSessions()
		}
	}
}

// AcceptAlternative installs a session's pending alternative route
func (s *NavigationService) AcceptAlternative(sessionID string) (*routing.Route, error) {
	managed, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	managed.session.AcceptAlternativeRoute()
	return managed.session.Route(), nil
}

// RejectAlternative discards a session's pending alternative route
func (s *NavigationService) RejectAlternative(sessionID string) error {
	managed, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	managed.session.RejectAlternativeRoute()
	return nil
}

// GetRoute returns the session's active route
func (s *NavigationService) GetRoute(sessionID string) (*routing.Route, error) {
	managed, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	route := managed.session.Route()
	if route == nil {
		return nil, ErrSessionNotFound
	}
	return route, nil
}

// EndSession ends and removes a session. Ending an unknown session is not an
// error; teardown races are expected.
func (s *NavigationService) EndSession(sessionID string) {
	s.mu.Lock()
	managed, exists := s.sessions[sessionID]
	if exists {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !exists {
		return
	}

	managed.mu.Lock()
	managed.session.End()
	managed.mu.Unlock()

	s.metrics.ActiveSessions.Dec()
	log.Printf("Ended navigation session %s", sessionID)
}

// evictIdleSessions ends sessions that stopped sending position updates
func (s *NavigationService) evictIdleSessions() {
	if s.config.SessionIdleTimeout <= 0 {
		return
	}

	cutoff := time.Now().Add(-s.config.SessionIdleTimeout)
	for sessionID, managed := range s.snapshot() {
		managed.mu.Lock()
		idle := managed.lastUpdate.Before(cutoff)
		managed.mu.Unlock()

		if idle {
			log.Printf("Evicting idle session %s", sessionID)
			s.EndSession(sessionID)
		}
	}
}

func (s *NavigationService) lookup(sessionID string) (*managedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	managed, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return managed, nil
}

// snapshot copies the session map so iteration does not hold the registry
// lock across session locks
func (s *NavigationService) snapshot() map[string]*managedSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(map[string]*managedSession, len(s.sessions))
	for id, managed := range s.sessions {
		copied[id] = managed
	}
	return copied
}

func (s *NavigationService) publishRecalculated(ctx context.Context, sessionID string, route *routing.Route) {
	if s.publisher == nil || route == nil {
		return
	}
	if err := s.publisher.PublishRecalculated(ctx, sessionID, route); err != nil {
		log.Printf("Session %s: failed to publish recalculation event: %v", sessionID, err)
	}
}

func (s *NavigationService) publishRecalculationFailed(ctx context.Context, sessionID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecalculationFailed(ctx, sessionID); err != nil {
		log.Printf("Session %s: failed to publish recalculation failure: %v", sessionID, err)
	}
}
