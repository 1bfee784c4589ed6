package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SamuelNikhil/QuizWall-game/internal/app"
	"github.com/SamuelNikhil/QuizWall-game/internal/infra/memory"
)

type outEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createdPayload struct {
	RoomID    string `json:"roomId"`
	JoinToken string `json:"joinToken"`
}

type joinedPayload struct {
	RoomID     string `json:"roomId"`
	Success    bool   `json:"success"`
	Role       string `json:"role"`
	ColorIndex int    `json:"colorIndex"`
	Error      string `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewTeamStore()
	source := memory.NewStaticSource(app.DefaultQuestions())
	rooms := app.NewRoomManager(source, store)
	coord := app.NewCoordinator(rooms, store)
	handler := NewWSHandler(coord)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/screen", handler.ServeScreen)
	mux.HandleFunc("/ws/controller", handler.ServeController)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dial(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(rawURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", rawURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil discards messages until one with the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env outEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		if env.Type == want {
			return env.Payload
		}
	}
}

func createRoom(t *testing.T, srv *httptest.Server) (*websocket.Conn, createdPayload) {
	t.Helper()
	screen := dial(t, wsURL(srv, "/ws/screen"))
	var created createdPayload
	if err := json.Unmarshal(readUntil(t, screen, "roomCreated"), &created); err != nil {
		t.Fatalf("decode roomCreated: %v", err)
	}
	if created.RoomID == "" || created.JoinToken == "" {
		t.Fatalf("incomplete roomCreated payload: %+v", created)
	}
	return screen, created
}

func controllerURL(srv *httptest.Server, created createdPayload, clientID string) string {
	return wsURL(srv, "/ws/controller") +
		"?roomId=" + created.RoomID + "&token=" + created.JoinToken + "&clientId=" + clientID
}

func TestScreenAndControllerHandshake(t *testing.T) {
	srv := newTestServer(t)
	screen, created := createRoom(t, srv)

	controller := dial(t, controllerURL(srv, created, "c1"))
	var joined joinedPayload
	if err := json.Unmarshal(readUntil(t, controller, "joinedRoom"), &joined); err != nil {
		t.Fatalf("decode joinedRoom: %v", err)
	}
	if !joined.Success || joined.Role != "leader" || joined.ColorIndex != 0 {
		t.Fatalf("unexpected join result: %+v", joined)
	}

	readUntil(t, screen, "controllerJoined")
	readUntil(t, screen, "lobbyUpdate")
}

func TestSetTeamNameRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	screen, created := createRoom(t, srv)
	controller := dial(t, controllerURL(srv, created, "c1"))
	readUntil(t, controller, "joinedRoom")

	msg := map[string]any{
		"type":    "setTeamName",
		"payload": map[string]string{"name": "Night Owls"},
	}
	if err := controller.WriteJSON(msg); err != nil {
		t.Fatalf("send setTeamName: %v", err)
	}

	type lobbyPayload struct {
		Team struct {
			Name string `json:"name"`
		} `json:"team"`
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("team name never reached the screen")
		}
		var lobby lobbyPayload
		if err := json.Unmarshal(readUntil(t, screen, "lobbyUpdate"), &lobby); err != nil {
			t.Fatalf("decode lobbyUpdate: %v", err)
		}
		if lobby.Team.Name == "Night Owls" {
			return
		}
	}
}

func TestControllerJoinRejectedWithBadToken(t *testing.T) {
	srv := newTestServer(t)
	_, created := createRoom(t, srv)

	badURL := wsURL(srv, "/ws/controller") +
		"?roomId=" + created.RoomID + "&token=not-the-token&clientId=c1"
	controller := dial(t, badURL)

	var joined joinedPayload
	if err := json.Unmarshal(readUntil(t, controller, "joinedRoom"), &joined); err != nil {
		t.Fatalf("decode joinedRoom: %v", err)
	}
	if joined.Success {
		t.Fatalf("bad token must be rejected")
	}
	if joined.Error != "Invalid token" {
		t.Fatalf("expected the client-facing token error, got %q", joined.Error)
	}
}

func TestControllerRequiresIdentityParams(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws/controller?roomId=ABCD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing params, got %d", resp.StatusCode)
	}
}

func TestScreenCloseEndsTheRoomForControllers(t *testing.T) {
	srv := newTestServer(t)
	screen, created := createRoom(t, srv)
	controller := dial(t, controllerURL(srv, created, "c1"))
	readUntil(t, controller, "joinedRoom")

	screen.Close()

	type overPayload struct {
		Reason string `json:"reason"`
	}
	var over overPayload
	if err := json.Unmarshal(readUntil(t, controller, "gameOver"), &over); err != nil {
		t.Fatalf("decode gameOver: %v", err)
	}
	if over.Reason != "screen_closed" {
		t.Fatalf("expected screen_closed, got %q", over.Reason)
	}
}
