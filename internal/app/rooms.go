package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

const (
	maxControllers = 3
	roomCodeLength = 4
	joinTokenBytes = 16
)

// Alphabet excludes ambiguous characters: 0, O, 1, I, L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Client is one connected party (screen or controller) the coordinator can
// push messages to. Reliable delivery is ordered and guaranteed; BestEffort
// may drop under backpressure and is reserved for cosmetic updates.
type Client interface {
	Reliable(event string, payload any)
	BestEffort(event string, payload any)
}

// Controller is one room member. ClientID is durable across reconnects;
// ConnectionID changes on every reconnect.
type Controller struct {
	ClientID     string
	ConnectionID string
	Conn         Client
	Role         domain.Role
	Ready        bool
	ColorIndex   int
}

// Room binds one screen to up to three controllers plus the per-room engine
// and team state. All fields are guarded by the owning RoomManager's mutex.
// GameStarted stays true after game over (late joins remain rejected until a
// restart); Ended marks the finished game so gameplay input and score flushes
// stop at the terminal gameOver.
type Room struct {
	Code         string
	Token        string
	Screen       Client
	ScreenConnID string
	Controllers  []*Controller
	Engine       *Engine
	Team         *TeamManager
	GameStarted  bool
	Ended        bool
}

// LobbyMember is the broadcast view of one controller.
type LobbyMember struct {
	ID         string      `json:"id"`
	Role       domain.Role `json:"role"`
	IsReady    bool        `json:"isReady"`
	ColorIndex int         `json:"colorIndex"`
}

// LobbyTeam groups the team name with its members for lobby broadcasts.
type LobbyTeam struct {
	Name    string        `json:"name"`
	Members []LobbyMember `json:"members"`
}

// LobbyState is the full lobby projection rebroadcast after every
// lobby-visible mutation. Always the whole state, never a delta.
type LobbyState struct {
	RoomID   string    `json:"roomId"`
	Team     LobbyTeam `json:"team"`
	CanStart bool      `json:"canStart"`
}

// JoinResult reports the outcome of a join attempt. Err is nil on success.
type JoinResult struct {
	Success    bool
	Reconnect  bool
	Role       domain.Role
	ColorIndex int
	Err        error
}

// RoomManager owns the registry of active rooms. It is injected into the
// coordinator rather than being a package-level singleton so independent
// instances can coexist.
type RoomManager struct {
	source QuestionSource
	store  TeamStore

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRoomManager(source QuestionSource, store TeamStore) *RoomManager {
	return &RoomManager{
		source: source,
		store:  store,
		rooms:  make(map[string]*Room),
	}
}

// CreateRoom allocates a room for a screen connection, along with a fresh
// engine and team manager scoped to it. The returned token is required in
// addition to the code to join; the code alone is guessable.
func (m *RoomManager) CreateRoom(screen Client, screenConnID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for attempt := 0; attempt < 10; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := m.rooms[code]; exists {
			continue
		}
		token, err := generateJoinToken()
		if err != nil {
			return nil, fmt.Errorf("generating join token: %w", err)
		}
		room := &Room{
			Code:         code,
			Token:        token,
			Screen:       screen,
			ScreenConnID: screenConnID,
			Engine:       NewEngine(m.source, code),
			Team:         NewTeamManager(m.store),
		}
		m.rooms[code] = room
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

// JoinRoom validates in order: room exists, token matches, then either
// rebinds an existing slot (reconnect by clientID, always allowed) or admits
// a new controller subject to capacity and game-started gating.
func (m *RoomManager) JoinRoom(roomID, token, clientID string, conn Client, connectionID string) JoinResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return JoinResult{Err: domain.ErrRoomNotFound}
	}
	if room.Token != token {
		return JoinResult{Err: domain.ErrInvalidToken}
	}

	// Reconnect: the slot already exists, so fullness and game state do not
	// apply. Only the transport binding changes.
	for _, ctrl := range room.Controllers {
		if ctrl.ClientID == clientID {
			ctrl.ConnectionID = connectionID
			ctrl.Conn = conn
			return JoinResult{Success: true, Reconnect: true, Role: ctrl.Role, ColorIndex: ctrl.ColorIndex}
		}
	}

	if len(room.Controllers) >= maxControllers {
		return JoinResult{Err: domain.ErrRoomFull}
	}
	if room.GameStarted {
		return JoinResult{Err: domain.ErrGameInProgress}
	}

	role := domain.RoleMember
	if len(room.Controllers) == 0 {
		role = domain.RoleLeader
	}
	ctrl := &Controller{
		ClientID:     clientID,
		ConnectionID: connectionID,
		Conn:         conn,
		Role:         role,
		Ready:        role == domain.RoleLeader,
		ColorIndex:   room.nextColorIndex(),
	}
	room.Controllers = append(room.Controllers, ctrl)
	return JoinResult{Success: true, Role: role, ColorIndex: ctrl.ColorIndex}
}

// nextColorIndex picks the lowest color not currently in use. This equals
// the zero-based join order while nobody leaves, and existing controllers
// keep their color when others do.
func (r *Room) nextColorIndex() int {
	taken := make(map[int]bool, len(r.Controllers))
	for _, ctrl := range r.Controllers {
		taken[ctrl.ColorIndex] = true
	}
	for i := 0; i < maxControllers; i++ {
		if !taken[i] {
			return i
		}
	}
	return len(r.Controllers)
}

// AllowTeamName authorizes setting the team name. Only the leader may set
// it, only in the lobby, only once per room, and it must be at least two
// characters after trimming. The actual resolve-or-create against the store
// is the coordinator's job.
func (m *RoomManager) AllowTeamName(roomID, clientID, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok || room.GameStarted {
		return false
	}
	if room.Team.Name() != "" {
		return false
	}
	ctrl := room.findByClientID(clientID)
	if ctrl == nil || ctrl.Role != domain.RoleLeader {
		return false
	}
	return len(strings.TrimSpace(name)) >= 2
}

// SetPlayerReady marks the identified controller ready. Idempotent.
func (m *RoomManager) SetPlayerReady(roomID, clientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	ctrl := room.findByClientID(clientID)
	if ctrl == nil {
		return false
	}
	ctrl.Ready = true
	return true
}

// CanStartGame reports whether the room is startable: a solo leader always
// is, a fuller lobby only once everyone is ready.
func (m *RoomManager) CanStartGame(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	return room.canStart()
}

func (r *Room) canStart() bool {
	if len(r.Controllers) == 0 {
		return false
	}
	if len(r.Controllers) == 1 {
		return true
	}
	for _, ctrl := range r.Controllers {
		if !ctrl.Ready {
			return false
		}
	}
	return true
}

// StartGame flips the gameStarted flag if the caller is the leader and the
// lobby is startable. A false return means "ignore silently": this can
// legitimately race with a member un-readying or leaving.
func (m *RoomManager) StartGame(roomID, clientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok || room.GameStarted {
		return false
	}
	ctrl := room.findByClientID(clientID)
	if ctrl == nil || ctrl.Role != domain.RoleLeader {
		return false
	}
	if !room.canStart() {
		return false
	}
	room.GameStarted = true
	return true
}

// EndGame marks the room's game finished. The room survives for a restart,
// but gameplay input and score flushes are over.
func (m *RoomManager) EndGame(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		room.Ended = true
	}
}

// ReopenLobby clears the game flags for an in-room restart.
func (m *RoomManager) ReopenLobby(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		room.GameStarted = false
		room.Ended = false
	}
}

// RemoveController removes a controller by its transient connection ID,
// promoting the next controller in join order if the leader left. The
// promoted controller is auto-marked ready.
func (m *RoomManager) RemoveController(connectionID string) (roomID string, removed Controller, wasLeader bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		for i, ctrl := range room.Controllers {
			if ctrl.ConnectionID != connectionID {
				continue
			}
			room.Controllers = append(room.Controllers[:i], room.Controllers[i+1:]...)
			wasLeader = ctrl.Role == domain.RoleLeader
			if wasLeader && len(room.Controllers) > 0 {
				next := room.Controllers[0]
				next.Role = domain.RoleLeader
				next.Ready = true
			}
			return room.Code, *ctrl, wasLeader, true
		}
	}
	return "", Controller{}, false, false
}

// DeleteRoomByScreen tears down the room owned by the given screen
// connection, destroying its engine. The removed room is returned so the
// caller can flush scores and notify controllers.
func (m *RoomManager) DeleteRoomByScreen(connectionID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, room := range m.rooms {
		if room.ScreenConnID == connectionID {
			delete(m.rooms, code)
			room.Engine.Destroy()
			return room, true
		}
	}
	return nil, false
}

// Room returns the live room for a code.
func (m *RoomManager) Room(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

// ControllerByClientID returns a snapshot of the identified controller.
func (m *RoomManager) ControllerByClientID(roomID, clientID string) (Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return Controller{}, false
	}
	if ctrl := room.findByClientID(clientID); ctrl != nil {
		return *ctrl, true
	}
	return Controller{}, false
}

// GameInProgress reports whether a game is actively running: started and not
// yet ended.
func (m *RoomManager) GameInProgress(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		return room.GameStarted && !room.Ended
	}
	return false
}

// ControllerCount reports how many controllers currently occupy the room.
func (m *RoomManager) ControllerCount(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		return len(room.Controllers)
	}
	return 0
}

// Clients snapshots the screen and controller connections for fan-out, so
// broadcasts happen outside the registry lock.
func (m *RoomManager) Clients(roomID string) (screen Client, controllers []Client, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, found := m.rooms[roomID]
	if !found {
		return nil, nil, false
	}
	controllers = make([]Client, 0, len(room.Controllers))
	for _, ctrl := range room.Controllers {
		if ctrl.Conn != nil {
			controllers = append(controllers, ctrl.Conn)
		}
	}
	return room.Screen, controllers, true
}

// LobbyState builds the read-only lobby projection for broadcasting.
func (m *RoomManager) LobbyState(roomID string) (LobbyState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return LobbyState{}, false
	}
	members := make([]LobbyMember, 0, len(room.Controllers))
	for _, ctrl := range room.Controllers {
		members = append(members, LobbyMember{
			ID:         ctrl.ClientID,
			Role:       ctrl.Role,
			IsReady:    ctrl.Ready,
			ColorIndex: ctrl.ColorIndex,
		})
	}
	return LobbyState{
		RoomID: room.Code,
		Team: LobbyTeam{
			Name:    room.Team.Name(),
			Members: members,
		},
		CanStart: room.canStart(),
	}, true
}

func (r *Room) findByClientID(clientID string) *Controller {
	for _, ctrl := range r.Controllers {
		if ctrl.ClientID == clientID {
			return ctrl
		}
	}
	return nil
}

func generateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func generateJoinToken() (string, error) {
	buf := make([]byte, joinTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
