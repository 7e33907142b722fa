package services

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced by the HTTP layer
		return true
	},
}

// positionMessage is an inbound live position update
type positionMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedKmh  float64 `json:"speed_kmh"`
}

// LiveTrackingHandler streams position updates for one session over a
// WebSocket connection and pushes progress, recalculations and alerts back
type LiveTrackingHandler struct {
	navigation *NavigationService
}

// NewLiveTrackingHandler creates a new handler over the navigation service
func NewLiveTrackingHandler(navigation *NavigationService) *LiveTrackingHandler {
	return &LiveTrackingHandler{navigation: navigation}
}

// ServeHTTP upgrades the connection and runs the per-session update loop.
// The loop is the session's single writer, satisfying the serialization the
// session requires.
func (h *LiveTrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if _, err := h.navigation.GetRoute(sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for session %s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("Live tracking connected for session %s", sessionID)

	for {
		var msg positionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Live tracking read error for session %s: %v", sessionID, err)
			}
			return
		}

		switch msg.Type {
		case "position":
			result, err := h.navigation.UpdatePosition(r.Context(), sessionID,
				geo.Point{Latitude: msg.Latitude, Longitude: msg.Longitude}, msg.SpeedKmh)
			if err != nil {
				h.writeError(conn, sessionID, "session not found")
				return
			}
			h.writeResult(conn, sessionID, result)

		case "end":
			h.navigation.EndSession(sessionID)
			h.writeJSON(conn, sessionID, map[string]string{"type": "ended"})
			return

		default:
			h.writeError(conn, sessionID, "unknown message type")
		}
	}
}

func (h *LiveTrackingHandler) writeResult(conn *websocket.Conn, sessionID string, result *PositionResult) {
	h.writeJSON(conn, sessionID, struct {
		Type string `json:"type"`
		*PositionResult
	}{Type: "progress", PositionResult: result})
}

func (h *LiveTrackingHandler) writeError(conn *websocket.Conn, sessionID, message string) {
	h.writeJSON(conn, sessionID, map[string]string{"type": "error", "error": message})
}

func (h *LiveTrackingHandler) writeJSON(conn *websocket.Conn, sessionID string, payload any) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to encode message for session %s: %v", sessionID, err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Failed to write message for session %s: %v", sessionID, err)
	}
}
