package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

// TeamStore persists team identity and scores across sessions. SaveResult
// must apply the best-score update atomically (replace-if-higher), since two
// rooms can finish simultaneously for the same team name.
type TeamStore interface {
	GetOrCreate(ctx context.Context, name string) (domain.Team, error)
	SaveResult(ctx context.Context, rec domain.SessionRecord) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// TeamManager binds a room's live score counter to a persisted team
// identity. Score mutation is memory-only on the hot path; the store is
// written exactly once per game, in SaveGameResult.
type TeamManager struct {
	store TeamStore

	mu    sync.Mutex
	team  *domain.Team
	score int
}

func NewTeamManager(store TeamStore) *TeamManager {
	return &TeamManager{store: store}
}

// SetName resolves or creates the persisted team immediately, so mid-game
// leaderboard queries already see the team with score zero.
func (m *TeamManager) SetName(ctx context.Context, name string) error {
	team, err := m.store.GetOrCreate(ctx, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.team = &team
	m.mu.Unlock()
	return nil
}

// Name returns the team name, empty until the leader sets one.
func (m *TeamManager) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.team == nil {
		return ""
	}
	return m.team.Name
}

// AddScore bumps the live score and returns the new total. No I/O.
func (m *TeamManager) AddScore(points int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score += points
	return m.score
}

// Score returns the live score.
func (m *TeamManager) Score() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score
}

// ResetScore zeroes the live counter for an in-room restart. The persisted
// best score is untouched.
func (m *TeamManager) ResetScore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = 0
}

// SaveGameResult flushes the finished game to the store: the persisted score
// is a high-water mark, and every game appends an immutable session record.
// A room that never named its team has nothing to save.
func (m *TeamManager) SaveGameResult(ctx context.Context, roomID string, questionsAnswered int) error {
	m.mu.Lock()
	team := m.team
	score := m.score
	m.mu.Unlock()

	if team == nil {
		return nil
	}
	return m.store.SaveResult(ctx, domain.SessionRecord{
		ID:                uuid.NewString(),
		RoomID:            roomID,
		TeamID:            team.ID,
		Score:             score,
		QuestionsAnswered: questionsAnswered,
		PlayedAt:          time.Now().UTC(),
	})
}
