package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SamuelNikhil/QuizWall-game/internal/app"
)

// WSHandler upgrades HTTP requests to websockets and routes them into the
// session coordinator. Screens and controllers get separate endpoints since
// their lifecycles differ: a screen owns a room, a controller joins one.
type WSHandler struct {
	coord    *app.Coordinator
	upgrader websocket.Upgrader
}

func NewWSHandler(coord *app.Coordinator) *WSHandler {
	return &WSHandler{
		coord: coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeScreen creates a room for the connecting screen and holds the
// connection open; the room lives exactly as long as this connection.
func (h *WSHandler) ServeScreen(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connectionID := uuid.NewString()
	client := newWSClient(conn)

	created, err := h.coord.CreateRoom(r.Context(), client, connectionID)
	if err != nil {
		_ = conn.WriteJSON(envelope{Type: "error", Payload: map[string]string{"message": err.Error()}})
		return
	}

	go client.writePump()
	defer client.shutdown()
	defer h.coord.ScreenDisconnected(connectionID)

	client.Reliable("roomCreated", created)

	// The screen is display-only; its read loop exists to detect disconnect.
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		log.Printf("ignoring unexpected screen message %q for room %s", inbound.Type, created.RoomID)
	}
}

// ServeController joins (or rejoins) a controller identified by the durable
// clientId from the join URL, then dispatches its messages until disconnect.
func (h *WSHandler) ServeController(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	token := r.URL.Query().Get("token")
	clientID := r.URL.Query().Get("clientId")
	if roomID == "" || token == "" || clientID == "" {
		http.Error(w, "missing roomId, token, or clientId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connectionID := uuid.NewString()
	client := newWSClient(conn)

	joined := h.coord.JoinRoom(roomID, token, clientID, client, connectionID)
	if !joined.Success {
		_ = conn.WriteJSON(envelope{Type: "joinedRoom", Payload: joined})
		return
	}

	go client.writePump()
	defer client.shutdown()
	defer h.coord.ControllerDisconnected(connectionID)

	client.Reliable("joinedRoom", joined)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.dispatch(r, roomID, clientID, inbound)
	}
}

func (h *WSHandler) dispatch(r *http.Request, roomID, clientID string, inbound inboundMessage) {
	switch inbound.Type {
	case "setTeamName":
		var payload setTeamNamePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			log.Printf("bad setTeamName payload from %s: %v", clientID, err)
			return
		}
		h.coord.SetTeamName(r.Context(), roomID, clientID, payload.Name)

	case "playerReady":
		h.coord.PlayerReady(roomID, clientID)

	case "startGame":
		h.coord.StartGame(roomID, clientID)

	case "restartGame":
		h.coord.RestartGame(roomID, clientID)

	case "shoot":
		var payload shootPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			log.Printf("bad shoot payload from %s: %v", clientID, err)
			return
		}
		h.coord.Shoot(roomID, clientID, payload.TargetXPercent, payload.TargetYPercent, payload.Power)

	case "crosshair":
		var payload crosshairPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		h.coord.Crosshair(roomID, clientID, payload.X, payload.Y)

	case "startAiming":
		var payload startAimingPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		h.coord.StartAiming(roomID, clientID, payload.GyroEnabled)

	case "cancelAiming":
		h.coord.CancelAiming(roomID, clientID)

	case "targeting":
		var payload targetingPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		h.coord.Targeting(roomID, clientID, payload.OrbID)

	default:
		log.Printf("unsupported message type %q from %s", inbound.Type, clientID)
	}
}
