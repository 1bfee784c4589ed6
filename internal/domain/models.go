package domain

import "time"

// Phase is one leg of the multiplayer question cycle.
type Phase string

const (
	PhaseAnalysis  Phase = "analysis"
	PhaseSelection Phase = "selection"
	PhaseReveal    Phase = "reveal"
)

// Role distinguishes the controller with start/restart authority.
type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// GameOverReason explains why a session ended.
type GameOverReason string

const (
	ReasonCompleted    GameOverReason = "completed"
	ReasonAllWrong     GameOverReason = "all_wrong"
	ReasonTimeUp       GameOverReason = "time_up"
	ReasonScreenClosed GameOverReason = "screen_closed"
)

// Option is one of the four answer choices of a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the server-side form of a quiz question. Correct holds the
// winning option ID and must never reach a client; clients only ever see
// the ClientQuestion projection.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Code    string   `json:"code,omitempty"`
	Options []Option `json:"options"`
	Correct string   `json:"correct"`
}

// ClientQuestion is the client-facing projection of a Question. It has no
// field for the correct option, so serializing it cannot leak the answer.
type ClientQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Code    string   `json:"code,omitempty"`
	Options []Option `json:"options"`
}

// Client strips the correct option ID from a question.
func (q Question) Client() ClientQuestion {
	return ClientQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Code:    q.Code,
		Options: q.Options,
	}
}

// Team is the persisted identity a room's players share. BestScore is a
// high-water mark across games, not a running sum.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BestScore   int    `json:"bestScore"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// SessionRecord is the immutable per-game history row written at game end.
type SessionRecord struct {
	ID                string    `json:"id"`
	RoomID            string    `json:"roomId"`
	TeamID            string    `json:"teamId"`
	Score             int       `json:"score"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	PlayedAt          time.Time `json:"playedAt"`
}

// LeaderboardEntry is one row of the best-score leaderboard.
type LeaderboardEntry struct {
	TeamName    string `json:"teamName"`
	BestScore   int    `json:"bestScore"`
	GamesPlayed int    `json:"gamesPlayed"`
}
