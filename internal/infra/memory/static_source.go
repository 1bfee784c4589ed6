package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

// StaticSource serves questions from a fixed set, tracking what each session
// has already received so refills never repeat a question. Release frees a
// session's tracking entry; a session that is never released leaks it.
type StaticSource struct {
	mu        sync.Mutex
	questions []domain.Question
	rnd       *rand.Rand
	sessions  map[string]map[string]struct{}
}

func NewStaticSource(questions []domain.Question) *StaticSource {
	return &StaticSource{
		questions: questions,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:  make(map[string]map[string]struct{}),
	}
}

func (s *StaticSource) Request(_ context.Context, sessionID string, n int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivered, ok := s.sessions[sessionID]
	if !ok {
		delivered = make(map[string]struct{})
		s.sessions[sessionID] = delivered
	}

	order := s.rnd.Perm(len(s.questions))
	out := make([]domain.Question, 0, n)
	for _, i := range order {
		if len(out) >= n {
			break
		}
		q := s.questions[i]
		key := strings.ToLower(strings.TrimSpace(q.Text))
		if _, seen := delivered[key]; seen {
			continue
		}
		delivered[key] = struct{}{}
		out = append(out, q)
	}
	return out, nil
}

func (s *StaticSource) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ActiveSessions counts sessions that still hold an allocation.
func (s *StaticSource) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
