package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
	"github.com/Stanux/walking-safely-sub002/internal/overlay"
	"github.com/Stanux/walking-safely-sub002/internal/services"
)

// Handler exposes the navigation engine over JSON HTTP
type Handler struct {
	routes     *services.RouteService
	navigation *services.NavigationService
	tracking   *services.LiveTrackingHandler
}

// NewHandler creates a Handler over the service layer
func NewHandler(routes *services.RouteService, navigation *services.NavigationService, tracking *services.LiveTrackingHandler) *Handler {
	return &Handler{
		routes:     routes,
		navigation: navigation,
		tracking:   tracking,
	}
}

// Mux builds the full route table
func (h *Handler) Mux(registry prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/routes", h.computeRoute)
	mux.HandleFunc("POST /api/v1/routes/alternatives", h.computeAlternatives)

	mux.HandleFunc("POST /api/v1/sessions", h.startSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/route", h.getSessionRoute)
	mux.HandleFunc("GET /api/v1/sessions/{id}/route.kml", h.getSessionOverlay)
	mux.HandleFunc("POST /api/v1/sessions/{id}/position", h.updatePosition)
	mux.HandleFunc("POST /api/v1/sessions/{id}/alternative/accept", h.acceptAlternative)
	mux.HandleFunc("POST /api/v1/sessions/{id}/alternative/reject", h.rejectAlternative)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.endSession)

	mux.Handle("GET /ws/track", h.tracking)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return mux
}

// routeRequest is the request body shared by route computation endpoints
type routeRequest struct {
	Origin      pointPayload `json:"origin"`
	Destination pointPayload `json:"destination"`
	Preference  string       `json:"preference,omitempty"`
}

type pointPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p pointPayload) toPoint() geo.Point {
	return geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}
}

// startSessionRequest starts navigation on a freshly computed route
type startSessionRequest struct {
	routeRequest
	Alerts struct {
		Enabled    bool     `json:"enabled"`
		CrimeTypes []string `json:"crime_types,omitempty"`
	} `json:"alerts"`
}

type positionPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedKmh  float64 `json:"speed_kmh"`
}

func (h *Handler) computeRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	route, err := h.routes.ComputeRoute(r.Context(), req.Origin.toPoint(), req.Destination.toPoint(), routing.Preference(req.Preference))
	if err != nil {
		writeRouteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (h *Handler) computeAlternatives(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	routes, err := h.routes.ComputeAlternatives(r.Context(), req.Origin.toPoint(), req.Destination.toPoint(), routing.Preference(req.Preference))
	if err != nil {
		writeRouteError(w, err)
		return
	}
	if routes == nil {
		routes = []*routing.Route{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	prefs := alerts.Preferences{
		Enabled:    req.Alerts.Enabled,
		CrimeTypes: req.Alerts.CrimeTypes,
	}

	sessionID, route, err := h.navigation.StartSession(r.Context(), req.Origin.toPoint(), req.Destination.toPoint(), routing.Preference(req.Preference), prefs)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sessionID,
		"route":      route,
	})
}

func (h *Handler) getSessionRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.navigation.GetRoute(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (h *Handler) getSessionOverlay(w http.ResponseWriter, r *http.Request) {
	route, err := h.navigation.GetRoute(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	if err := overlay.WriteRouteOverlay(w, route); err != nil {
		log.Printf("Failed to render route overlay: %v", err)
	}
}

func (h *Handler) updatePosition(w http.ResponseWriter, r *http.Request) {
	var req positionPayload
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.navigation.UpdatePosition(r.Context(), r.PathValue("id"),
		geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}, req.SpeedKmh)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) acceptAlternative(w http.ResponseWriter, r *http.Request) {
	route, err := h.navigation.AcceptAlternative(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (h *Handler) rejectAlternative(w http.ResponseWriter, r *http.Request) {
	if err := h.navigation.RejectAlternative(r.PathValue("id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	h.navigation.EndSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeRouteError maps route computation failures to HTTP statuses
func writeRouteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coordinates"})
	case errors.Is(err, routing.ErrRouteUnavailable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "route unavailable"})
	default:
		log.Printf("Route computation error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	log.Printf("Session error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
