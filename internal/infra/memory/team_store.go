package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

// TeamStore is the in-memory implementation of app.TeamStore, used when no
// backing store is configured and throughout the tests.
type TeamStore struct {
	mu      sync.Mutex
	teams   map[string]*domain.Team
	records []domain.SessionRecord
}

func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[string]*domain.Team)}
}

func (s *TeamStore) GetOrCreate(_ context.Context, name string) (domain.Team, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	s.mu.Lock()
	defer s.mu.Unlock()

	if team, ok := s.teams[key]; ok {
		return *team, nil
	}
	team := &domain.Team{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
	}
	s.teams[key] = team
	return *team, nil
}

// SaveResult applies the high-water-mark policy: the persisted best score
// only ever goes up. Every game appends a session record regardless.
func (s *TeamStore) SaveResult(_ context.Context, rec domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var team *domain.Team
	for _, t := range s.teams {
		if t.ID == rec.TeamID {
			team = t
			break
		}
	}
	if team == nil {
		return domain.ErrTeamNotFound
	}
	if rec.Score > team.BestScore {
		team.BestScore = rec.Score
	}
	team.GamesPlayed++
	s.records = append(s.records, rec)
	return nil
}

func (s *TeamStore) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.LeaderboardEntry, 0, len(s.teams))
	for _, team := range s.teams {
		entries = append(entries, domain.LeaderboardEntry{
			TeamName:    team.Name,
			BestScore:   team.BestScore,
			GamesPlayed: team.GamesPlayed,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BestScore != entries[j].BestScore {
			return entries[i].BestScore > entries[j].BestScore
		}
		return entries[i].TeamName < entries[j].TeamName
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Records snapshots the session history, newest last.
func (s *TeamStore) Records() []domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SessionRecord, len(s.records))
	copy(out, s.records)
	return out
}
