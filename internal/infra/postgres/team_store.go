package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

type teamRow struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	NameKey     string    `bun:"name_key,notnull"`
	BestScore   int       `bun:"best_score,notnull,default:0"`
	GamesPlayed int       `bun:"games_played,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID                string    `bun:"id,pk"`
	RoomID            string    `bun:"room_id,notnull"`
	TeamID            string    `bun:"team_id,notnull"`
	Score             int       `bun:"score,notnull"`
	QuestionsAnswered int       `bun:"questions_answered,notnull"`
	PlayedAt          time.Time `bun:"played_at,notnull"`
}

// TeamStore persists teams and session history in Postgres via bun.
type TeamStore struct {
	db *bun.DB
}

func NewTeamStore(db *bun.DB) *TeamStore {
	return &TeamStore{db: db}
}

// GetOrCreate upserts by normalized name so concurrent creates for the same
// team collapse into one row.
func (s *TeamStore) GetOrCreate(ctx context.Context, name string) (domain.Team, error) {
	display := strings.TrimSpace(name)
	row := &teamRow{
		ID:        uuid.NewString(),
		Name:      display,
		NameKey:   strings.ToLower(display),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (name_key) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Team{}, fmt.Errorf("get or create team: %w", err)
	}
	return domain.Team{
		ID:          row.ID,
		Name:        row.Name,
		BestScore:   row.BestScore,
		GamesPlayed: row.GamesPlayed,
	}, nil
}

// SaveResult updates the best score as a single conditional statement, so
// the read-modify-write cannot race with another room finishing for the same
// team, then appends the immutable session record.
func (s *TeamStore) SaveResult(ctx context.Context, rec domain.SessionRecord) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*teamRow)(nil)).
			Set("best_score = GREATEST(best_score, ?)", rec.Score).
			Set("games_played = games_played + 1").
			Where("id = ?", rec.TeamID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update team score: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrTeamNotFound
		}

		_, err = tx.NewInsert().Model(&sessionRow{
			ID:                rec.ID,
			RoomID:            rec.RoomID,
			TeamID:            rec.TeamID,
			Score:             rec.Score,
			QuestionsAnswered: rec.QuestionsAnswered,
			PlayedAt:          rec.PlayedAt,
		}).Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert session record: %w", err)
		}
		return nil
	})
}

func (s *TeamStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []teamRow
	err := s.db.NewSelect().
		Model(&rows).
		Order("best_score DESC", "name ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			TeamName:    row.Name,
			BestScore:   row.BestScore,
			GamesPlayed: row.GamesPlayed,
		})
	}
	return entries, nil
}
