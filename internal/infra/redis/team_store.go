package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

// TeamStore keeps teams in Redis:
//   - ZSET quizwall:leaderboard      {teamKey} -> best score
//   - HASH quizwall:team:{teamKey}   display name, games played
//   - LIST quizwall:records:{teamKey} JSON session records, append-only
//
// The best score uses ZADD GT, so replace-if-higher is atomic even when two
// rooms finish simultaneously for the same team name.
type TeamStore struct {
	client *redis.Client
}

func NewTeamStore(client *redis.Client) *TeamStore {
	return &TeamStore{client: client}
}

const leaderboardKey = "quizwall:leaderboard"

func teamKey(id string) string    { return "quizwall:team:" + id }
func recordsKey(id string) string { return "quizwall:records:" + id }

func (s *TeamStore) GetOrCreate(ctx context.Context, name string) (domain.Team, error) {
	display := strings.TrimSpace(name)
	id := strings.ToLower(display)

	pipe := s.client.Pipeline()
	pipe.HSetNX(ctx, teamKey(id), "name", display)
	pipe.HSetNX(ctx, teamKey(id), "games", 0)
	pipe.ZAddNX(ctx, leaderboardKey, redis.Z{Score: 0, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Team{}, fmt.Errorf("create team: %w", err)
	}
	return s.readTeam(ctx, id)
}

func (s *TeamStore) SaveResult(ctx context.Context, rec domain.SessionRecord) error {
	exists, err := s.client.Exists(ctx, teamKey(rec.TeamID)).Result()
	if err != nil {
		return fmt.Errorf("check team: %w", err)
	}
	if exists == 0 {
		return domain.ErrTeamNotFound
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.ZAddGT(ctx, leaderboardKey, redis.Z{Score: float64(rec.Score), Member: rec.TeamID})
	pipe.HIncrBy(ctx, teamKey(rec.TeamID), "games", 1)
	pipe.RPush(ctx, recordsKey(rec.TeamID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *TeamStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard range: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, member := range members {
		id, _ := member.Member.(string)
		team, err := s.readTeam(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.LeaderboardEntry{
			TeamName:    team.Name,
			BestScore:   int(member.Score),
			GamesPlayed: team.GamesPlayed,
		})
	}
	return entries, nil
}

func (s *TeamStore) readTeam(ctx context.Context, id string) (domain.Team, error) {
	fields, err := s.client.HGetAll(ctx, teamKey(id)).Result()
	if err != nil {
		return domain.Team{}, fmt.Errorf("read team: %w", err)
	}
	score, err := s.client.ZScore(ctx, leaderboardKey, id).Result()
	if err != nil && err != redis.Nil {
		return domain.Team{}, fmt.Errorf("read score: %w", err)
	}
	games, _ := strconv.Atoi(fields["games"])
	return domain.Team{
		ID:          id,
		Name:        fields["name"],
		BestScore:   int(score),
		GamesPlayed: games,
	}, nil
}
