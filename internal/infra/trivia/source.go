package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Source fetches generated questions from a question API. The API is
// expected to return validated records; everything is still checked here so
// a misbehaving upstream degrades to fewer questions, never to a leaked
// answer or a malformed round.
type Source struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	sessions map[string]map[string]struct{}
}

type apiResponse struct {
	Questions []apiQuestion `json:"questions"`
}

type apiQuestion struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Code    string          `json:"code"`
	Options []domain.Option `json:"options"`
	Correct string          `json:"correct"`
}

func NewSource(baseURL string, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Source{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		sessions: make(map[string]map[string]struct{}),
	}
}

func (s *Source) Request(ctx context.Context, sessionID string, n int) ([]domain.Question, error) {
	reqURL := s.baseURL + "?amount=" + strconv.Itoa(n) + "&session=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("question api returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delivered, ok := s.sessions[sessionID]
	if !ok {
		delivered = make(map[string]struct{})
		s.sessions[sessionID] = delivered
	}

	out := make([]domain.Question, 0, len(payload.Questions))
	for _, raw := range payload.Questions {
		q, ok := buildQuestion(raw)
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(q.Text))
		if _, seen := delivered[key]; seen {
			continue
		}
		delivered[key] = struct{}{}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return out, nil
}

func (s *Source) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// buildQuestion validates one record: non-empty text, exactly four options,
// and a correct ID that matches one of them.
func buildQuestion(raw apiQuestion) (domain.Question, bool) {
	if strings.TrimSpace(raw.Text) == "" || len(raw.Options) != 4 {
		return domain.Question{}, false
	}
	correctFound := false
	for _, opt := range raw.Options {
		if opt.ID == raw.Correct {
			correctFound = true
			break
		}
	}
	if !correctFound {
		return domain.Question{}, false
	}
	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}
	return domain.Question{
		ID:      id,
		Text:    raw.Text,
		Code:    raw.Code,
		Options: raw.Options,
		Correct: raw.Correct,
	}, true
}
