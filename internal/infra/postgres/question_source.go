package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

// QuestionSource draws questions from the questions table (JSONB rows).
// Per-session delivery is tracked in memory so refills within one session
// never repeat a question text; Release drops the tracking entry.
type QuestionSource struct {
	pool *pgxpool.Pool

	mu       sync.Mutex
	sessions map[string]map[string]struct{}
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{
		pool:     pool,
		sessions: make(map[string]map[string]struct{}),
	}
}

func (s *QuestionSource) Request(ctx context.Context, sessionID string, n int) ([]domain.Question, error) {
	s.mu.Lock()
	delivered, ok := s.sessions[sessionID]
	if !ok {
		delivered = make(map[string]struct{})
		s.sessions[sessionID] = delivered
	}
	already := len(delivered)
	s.mu.Unlock()

	// Over-fetch to cover rows the session has already seen.
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions ORDER BY random() LIMIT $1`, n+already)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0, n)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil || !validQuestion(q) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(q.Text))

		s.mu.Lock()
		_, seen := delivered[key]
		if !seen {
			delivered[key] = struct{}{}
		}
		s.mu.Unlock()

		if seen {
			continue
		}
		out = append(out, q)
		if len(out) >= n {
			break
		}
	}
	return out, rows.Err()
}

func (s *QuestionSource) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func validQuestion(q domain.Question) bool {
	if strings.TrimSpace(q.Text) == "" || len(q.Options) != 4 {
		return false
	}
	for _, opt := range q.Options {
		if opt.ID == q.Correct {
			return true
		}
	}
	return false
}
