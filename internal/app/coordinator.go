package app

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

const (
	leaderboardSize = 10

	defaultTutorialDelay = 5 * time.Second
	defaultQuestionDelay = 2 * time.Second
)

// Orbs are laid out at fixed percent coordinates of the screen; a shot hits
// the nearest orb within the radius, also in percent of screen size.
const orbHitRadius = 12.0

type orbPosition struct {
	id string
	x  float64
	y  float64
}

var orbLayout = []orbPosition{
	{"A", 25, 35},
	{"B", 75, 35},
	{"C", 25, 70},
	{"D", 75, 70},
}

// Outbound payloads. Positions are percentages of screen size, never pixels.

type RoomCreatedPayload struct {
	RoomID      string                    `json:"roomId"`
	JoinToken   string                    `json:"joinToken"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type JoinedRoomPayload struct {
	RoomID     string      `json:"roomId"`
	Success    bool        `json:"success"`
	Role       domain.Role `json:"role,omitempty"`
	ColorIndex int         `json:"colorIndex"`
	Error      string      `json:"error,omitempty"`
}

type ControllerJoinedPayload struct {
	ControllerID string      `json:"controllerId"`
	Role         domain.Role `json:"role"`
	ColorIndex   int         `json:"colorIndex"`
}

type ControllerLeftPayload struct {
	ControllerID string `json:"controllerId"`
}

type TutorialPayload struct {
	Seconds int `json:"seconds"`
}

type GameStartedPayload struct {
	Question domain.ClientQuestion `json:"question"`
	TimeLeft int                   `json:"timeLeft"`
}

type QuestionPayload struct {
	Question domain.ClientQuestion `json:"question"`
	Number   int                   `json:"number"`
}

type TimerSyncPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type PhaseChangePayload struct {
	Phase          domain.Phase `json:"phase"`
	TimeLeft       int          `json:"timeLeft"`
	QuestionNumber int          `json:"questionNumber"`
}

type GameOverPayload struct {
	FinalScore        int                       `json:"finalScore"`
	TeamName          string                    `json:"teamName"`
	Leaderboard       []domain.LeaderboardEntry `json:"leaderboard"`
	Reason            domain.GameOverReason     `json:"reason"`
	QuestionsAnswered int                       `json:"questionsAnswered"`
}

type HitResultPayload struct {
	ControllerID string `json:"controllerId"`
	Correct      bool   `json:"correct"`
	Points       int    `json:"points"`
	OrbID        string `json:"orbId"`
}

type PlayerSelectionPayload struct {
	ControllerID string `json:"controllerId"`
	OrbID        string `json:"orbId"`
	ColorIndex   int    `json:"colorIndex"`
}

type RevealResultPayload struct {
	CorrectOrbID string                   `json:"correctOrbId"`
	Selections   []PlayerSelectionPayload `json:"selections"`
	AnyCorrect   bool                     `json:"anyCorrect"`
	Points       int                      `json:"points"`
}

type ProjectilePayload struct {
	ControllerID   string  `json:"controllerId"`
	TargetXPercent float64 `json:"targetXPercent"`
	TargetYPercent float64 `json:"targetYPercent"`
}

type ScoreUpdatePayload struct {
	TeamScore int    `json:"teamScore"`
	TeamName  string `json:"teamName"`
}

type CrosshairPayload struct {
	ControllerID string  `json:"controllerId"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

type AimingPayload struct {
	ControllerID string `json:"controllerId"`
	GyroEnabled  bool   `json:"gyroEnabled,omitempty"`
}

type TargetingPayload struct {
	ControllerID string `json:"controllerId"`
	OrbID        string `json:"orbId"`
}

// Coordinator routes transport events into the room manager, quiz engine,
// and team manager, and fans resulting state changes back out. Clients never
// hold authoritative state; they render what they are told.
type Coordinator struct {
	rooms *RoomManager
	store TeamStore

	tutorialDelay time.Duration
	questionDelay time.Duration
}

func NewCoordinator(rooms *RoomManager, store TeamStore) *Coordinator {
	return &Coordinator{
		rooms:         rooms,
		store:         store,
		tutorialDelay: defaultTutorialDelay,
		questionDelay: defaultQuestionDelay,
	}
}

// CreateRoom allocates a room for a screen and returns the payload the
// screen needs to display its join QR and the current leaderboard.
func (c *Coordinator) CreateRoom(ctx context.Context, screen Client, screenConnID string) (RoomCreatedPayload, error) {
	room, err := c.rooms.CreateRoom(screen, screenConnID)
	if err != nil {
		return RoomCreatedPayload{}, err
	}
	return RoomCreatedPayload{
		RoomID:      room.Code,
		JoinToken:   room.Token,
		Leaderboard: c.leaderboard(ctx),
	}, nil
}

// JoinRoom admits or rebinds a controller and rebroadcasts lobby state on
// success. The returned payload goes to the joining controller either way.
func (c *Coordinator) JoinRoom(roomID, token, clientID string, conn Client, connectionID string) JoinedRoomPayload {
	res := c.rooms.JoinRoom(roomID, token, clientID, conn, connectionID)
	if res.Err != nil {
		return JoinedRoomPayload{RoomID: roomID, Error: res.Err.Error()}
	}
	if !res.Reconnect {
		if screen, _, ok := c.rooms.Clients(roomID); ok && screen != nil {
			screen.Reliable("controllerJoined", ControllerJoinedPayload{
				ControllerID: clientID,
				Role:         res.Role,
				ColorIndex:   res.ColorIndex,
			})
		}
	}
	c.broadcastLobby(roomID)
	return JoinedRoomPayload{
		RoomID:     roomID,
		Success:    true,
		Role:       res.Role,
		ColorIndex: res.ColorIndex,
	}
}

// SetTeamName resolves the team against the store and rebroadcasts the
// lobby. Non-leaders and bad names are ignored.
func (c *Coordinator) SetTeamName(ctx context.Context, roomID, clientID, name string) bool {
	if !c.rooms.AllowTeamName(roomID, clientID, name) {
		return false
	}
	room, ok := c.rooms.Room(roomID)
	if !ok {
		return false
	}
	if err := room.Team.SetName(ctx, name); err != nil {
		log.Printf("set team name failed for room %s: %v", roomID, err)
		return false
	}
	c.broadcastLobby(roomID)
	return true
}

// PlayerReady marks a controller ready and rebroadcasts the lobby.
func (c *Coordinator) PlayerReady(roomID, clientID string) {
	if c.rooms.SetPlayerReady(roomID, clientID) {
		c.broadcastLobby(roomID)
	}
}

// StartGame runs the ordered start sequence: mark started, broadcast the
// tutorial window, initialize the engine in the background during it, then
// serve the first question and begin the timer mode chosen by the
// controller count captured at that moment.
func (c *Coordinator) StartGame(roomID, clientID string) {
	if !c.rooms.StartGame(roomID, clientID) {
		return
	}
	room, ok := c.rooms.Room(roomID)
	if !ok {
		return
	}
	c.broadcast(roomID, "tutorial", TutorialPayload{Seconds: int(c.tutorialDelay.Seconds())})

	go func() {
		if err := room.Engine.Initialize(context.Background()); err != nil {
			log.Printf("engine init failed for room %s: %v", roomID, err)
		}
	}()
	time.AfterFunc(c.tutorialDelay, func() { c.beginPlay(roomID) })
}

func (c *Coordinator) beginPlay(roomID string) {
	room, ok := c.rooms.Room(roomID)
	if !ok {
		return
	}
	count := c.rooms.ControllerCount(roomID)
	if count == 0 {
		return
	}
	eng := room.Engine
	// Late arrivals to Initialize are covered by the fallback set.
	if err := eng.Initialize(context.Background()); err != nil {
		log.Printf("engine init failed for room %s: %v", roomID, err)
	}
	eng.SetPlayerCount(count)
	c.wireEngine(roomID, room)

	question, ok := eng.NextQuestion()
	if !ok {
		c.finishGame(roomID, room, domain.ReasonCompleted)
		return
	}
	if count >= 2 {
		c.broadcast(roomID, "gameStarted", GameStartedPayload{
			Question: question.Client(),
			TimeLeft: AnalysisSeconds,
		})
		eng.StartPhaseTimer()
	} else {
		c.broadcast(roomID, "gameStarted", GameStartedPayload{
			Question: question.Client(),
			TimeLeft: SinglePlayerSeconds,
		})
		eng.StartTimer()
	}
}

// wireEngine connects engine events to room-wide broadcasts and scoring.
func (c *Coordinator) wireEngine(roomID string, room *Room) {
	room.Engine.SetCallbacks(EngineCallbacks{
		OnTick: func(secondsLeft int) {
			c.broadcast(roomID, "timerSync", TimerSyncPayload{TimeLeft: secondsLeft})
		},
		OnPhase: func(phase domain.Phase, secondsLeft, questionNumber int) {
			c.broadcast(roomID, "phaseChange", PhaseChangePayload{
				Phase:          phase,
				TimeLeft:       secondsLeft,
				QuestionNumber: questionNumber,
			})
		},
		OnQuestion: func(q domain.ClientQuestion, number int) {
			c.broadcast(roomID, "question", QuestionPayload{Question: q, Number: number})
		},
		OnReveal: func(r RevealResult) {
			payload := RevealResultPayload{
				CorrectOrbID: r.CorrectOption,
				AnyCorrect:   r.AnyCorrect,
				Points:       r.Points,
			}
			for clientID, orbID := range r.Selections {
				sel := PlayerSelectionPayload{ControllerID: clientID, OrbID: orbID}
				if ctrl, ok := c.rooms.ControllerByClientID(roomID, clientID); ok {
					sel.ColorIndex = ctrl.ColorIndex
				}
				payload.Selections = append(payload.Selections, sel)
			}
			c.broadcast(roomID, "revealResult", payload)
			if r.AnyCorrect {
				total := room.Team.AddScore(r.Points)
				c.broadcast(roomID, "scoreUpdate", ScoreUpdatePayload{
					TeamScore: total,
					TeamName:  room.Team.Name(),
				})
			}
		},
		OnGameOver: func(reason domain.GameOverReason) {
			c.finishGame(roomID, room, reason)
		},
	})
}

// finishGame marks the game ended, flushes the score, and broadcasts the
// terminal game-over with a fresh leaderboard. The room survives so the
// leader can restart; until then gameplay input is dead and the score is
// flushed exactly once.
func (c *Coordinator) finishGame(roomID string, room *Room, reason domain.GameOverReason) {
	c.rooms.EndGame(roomID)
	ctx := context.Background()
	answered, _ := room.Engine.QuestionsAnswered()
	if err := room.Team.SaveGameResult(ctx, roomID, answered); err != nil {
		log.Printf("saving game result for room %s: %v", roomID, err)
	}
	c.broadcast(roomID, "gameOver", GameOverPayload{
		FinalScore:        room.Team.Score(),
		TeamName:          room.Team.Name(),
		Leaderboard:       c.leaderboard(ctx),
		Reason:            reason,
		QuestionsAnswered: answered,
	})
}

// RestartGame resets the engine and live score for another run in the same
// room. Leader only. The lobby reopens with everyone's ready flags intact.
func (c *Coordinator) RestartGame(roomID, clientID string) {
	ctrl, ok := c.rooms.ControllerByClientID(roomID, clientID)
	if !ok || ctrl.Role != domain.RoleLeader {
		return
	}
	room, ok := c.rooms.Room(roomID)
	if !ok {
		return
	}
	room.Engine.Reset()
	room.Team.ResetScore()
	c.rooms.ReopenLobby(roomID)
	c.broadcast(roomID, "gameRestarted", struct{}{})
	c.broadcastLobby(roomID)
}

// Shoot translates a controller's shot at percent coordinates into an orb
// hit by nearest match within the hit radius. A miss is silently dropped: it
// neither counts as a wrong answer nor spends the one-selection budget.
func (c *Coordinator) Shoot(roomID, clientID string, xPercent, yPercent, power float64) {
	_ = power // visual only; the screen animates it from the projectile relay
	ctrl, ok := c.rooms.ControllerByClientID(roomID, clientID)
	if !ok || !c.rooms.GameInProgress(roomID) {
		return
	}
	room, ok := c.rooms.Room(roomID)
	if !ok {
		return
	}
	if screen, _, ok := c.rooms.Clients(roomID); ok && screen != nil {
		screen.Reliable("projectile", ProjectilePayload{
			ControllerID:   clientID,
			TargetXPercent: xPercent,
			TargetYPercent: yPercent,
		})
	}

	orbID, hit := orbAt(xPercent, yPercent)
	if !hit {
		return
	}
	eng := room.Engine
	if eng.PlayerCount() <= 1 {
		correct, points := eng.ValidateAnswer(orbID)
		c.broadcast(roomID, "hitResult", HitResultPayload{
			ControllerID: clientID,
			Correct:      correct,
			Points:       points,
			OrbID:        orbID,
		})
		if !correct {
			return
		}
		total := room.Team.AddScore(points)
		c.broadcast(roomID, "scoreUpdate", ScoreUpdatePayload{
			TeamScore: total,
			TeamName:  room.Team.Name(),
		})
		time.AfterFunc(c.questionDelay, func() { c.advanceSinglePlayer(roomID, room) })
		return
	}

	if eng.RecordSelection(clientID, orbID) {
		c.broadcast(roomID, "playerSelection", PlayerSelectionPayload{
			ControllerID: clientID,
			OrbID:        orbID,
			ColorIndex:   ctrl.ColorIndex,
		})
	}
}

// advanceSinglePlayer serves the next question after the display delay and
// resets the countdown, or completes the session when the pool is spent.
func (c *Coordinator) advanceSinglePlayer(roomID string, room *Room) {
	if !c.rooms.GameInProgress(roomID) {
		return
	}
	question, ok := room.Engine.NextQuestion()
	if !ok {
		room.Engine.StopTimer()
		c.finishGame(roomID, room, domain.ReasonCompleted)
		return
	}
	room.Engine.ResetCountdown()
	c.broadcast(roomID, "question", QuestionPayload{
		Question: question.Client(),
		Number:   room.Engine.QuestionNumber(),
	})
}

// Crosshair, aiming, and targeting events are visual-only relays to the
// screen; they use best-effort delivery and may drop under load.

func (c *Coordinator) Crosshair(roomID, clientID string, x, y float64) {
	if screen, _, ok := c.rooms.Clients(roomID); ok && screen != nil {
		screen.BestEffort("crosshair", CrosshairPayload{ControllerID: clientID, X: x, Y: y})
	}
}

func (c *Coordinator) StartAiming(roomID, clientID string, gyroEnabled bool) {
	if screen, _, ok := c.rooms.Clients(roomID); ok && screen != nil {
		screen.BestEffort("startAiming", AimingPayload{ControllerID: clientID, GyroEnabled: gyroEnabled})
	}
}

func (c *Coordinator) CancelAiming(roomID, clientID string) {
	if screen, _, ok := c.rooms.Clients(roomID); ok && screen != nil {
		screen.BestEffort("cancelAiming", AimingPayload{ControllerID: clientID})
	}
}

func (c *Coordinator) Targeting(roomID, clientID, orbID string) {
	if screen, _, ok := c.rooms.Clients(roomID); ok && screen != nil {
		screen.BestEffort("targeting", TargetingPayload{ControllerID: clientID, OrbID: orbID})
	}
}

// ControllerDisconnected removes the controller, promotes a new leader if
// needed, and rebroadcasts lobby state. Play continues; score is unaffected.
func (c *Coordinator) ControllerDisconnected(connectionID string) {
	roomID, removed, _, ok := c.rooms.RemoveController(connectionID)
	if !ok {
		return
	}
	if screen, _, found := c.rooms.Clients(roomID); found && screen != nil {
		screen.Reliable("controllerLeft", ControllerLeftPayload{ControllerID: removed.ClientID})
	}
	c.broadcastLobby(roomID)
}

// ScreenDisconnected force-ends the room: flush the score if a game was
// still running (a game that already finished was flushed at its gameOver),
// send the controllers a terminal game over, then drop the room.
func (c *Coordinator) ScreenDisconnected(connectionID string) {
	room, ok := c.rooms.DeleteRoomByScreen(connectionID)
	if !ok {
		return
	}
	ctx := context.Background()
	answered, _ := room.Engine.QuestionsAnswered()
	if room.GameStarted && !room.Ended {
		if err := room.Team.SaveGameResult(ctx, room.Code, answered); err != nil {
			log.Printf("flushing score for room %s: %v", room.Code, err)
		}
	}
	payload := GameOverPayload{
		FinalScore:        room.Team.Score(),
		TeamName:          room.Team.Name(),
		Leaderboard:       c.leaderboard(ctx),
		Reason:            domain.ReasonScreenClosed,
		QuestionsAnswered: answered,
	}
	for _, ctrl := range room.Controllers {
		if ctrl.Conn != nil {
			ctrl.Conn.Reliable("gameOver", payload)
		}
	}
}

// Leaderboard is a pure read against the store, independent of any room.
func (c *Coordinator) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return c.store.Leaderboard(ctx, limit)
}

func (c *Coordinator) leaderboard(ctx context.Context) []domain.LeaderboardEntry {
	entries, err := c.store.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		log.Printf("leaderboard query failed: %v", err)
		return []domain.LeaderboardEntry{}
	}
	return entries
}

// broadcast sends reliably to the screen and every controller in the room.
func (c *Coordinator) broadcast(roomID, event string, payload any) {
	screen, controllers, ok := c.rooms.Clients(roomID)
	if !ok {
		return
	}
	if screen != nil {
		screen.Reliable(event, payload)
	}
	for _, conn := range controllers {
		conn.Reliable(event, payload)
	}
}

// broadcastLobby pushes the full lobby projection to all parties. Always the
// whole state: with at most four parties per room, correctness beats deltas.
func (c *Coordinator) broadcastLobby(roomID string) {
	state, ok := c.rooms.LobbyState(roomID)
	if !ok {
		return
	}
	c.broadcast(roomID, "lobbyUpdate", state)
}

// orbAt maps a shot to the nearest orb within the hit radius.
func orbAt(xPercent, yPercent float64) (string, bool) {
	bestID := ""
	bestDist := math.MaxFloat64
	for _, orb := range orbLayout {
		dx := xPercent - orb.x
		dy := yPercent - orb.y
		dist := math.Hypot(dx, dy)
		if dist < bestDist {
			bestDist = dist
			bestID = orb.id
		}
	}
	if bestDist > orbHitRadius {
		return "", false
	}
	return bestID, true
}
