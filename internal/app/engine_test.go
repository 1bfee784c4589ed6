package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

// stubSource is a controllable QuestionSource for engine tests.
type stubSource struct {
	mu        sync.Mutex
	questions []domain.Question
	err       error
	requests  int
	released  []string
}

func (s *stubSource) Request(_ context.Context, _ string, n int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if s.err != nil {
		return nil, s.err
	}
	if n > len(s.questions) {
		n = len(s.questions)
	}
	out := make([]domain.Question, n)
	copy(out, s.questions[:n])
	return out, nil
}

func (s *stubSource) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, sessionID)
}

func (s *stubSource) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *stubSource) releasedSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.released))
	copy(out, s.released)
	return out
}

func testQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:   fmt.Sprintf("q%d", i+1),
			Text: fmt.Sprintf("Question number %d?", i+1),
			Options: []domain.Option{
				{ID: "A", Text: "first"},
				{ID: "B", Text: "second"},
				{ID: "C", Text: "third"},
				{ID: "D", Text: "fourth"},
			},
			Correct: "B",
		})
	}
	return questions
}

// recorder captures engine callbacks; ticks are driven manually so no
// locking is needed.
type recorder struct {
	ticks     []int
	phases    []domain.Phase
	phaseSecs []int
	questions []domain.ClientQuestion
	reveals   []RevealResult
	overs     []domain.GameOverReason
}

func (r *recorder) callbacks() EngineCallbacks {
	return EngineCallbacks{
		OnTick: func(secondsLeft int) { r.ticks = append(r.ticks, secondsLeft) },
		OnPhase: func(phase domain.Phase, secondsLeft, _ int) {
			r.phases = append(r.phases, phase)
			r.phaseSecs = append(r.phaseSecs, secondsLeft)
		},
		OnQuestion: func(q domain.ClientQuestion, _ int) { r.questions = append(r.questions, q) },
		OnReveal:   func(res RevealResult) { r.reveals = append(r.reveals, res) },
		OnGameOver: func(reason domain.GameOverReason) { r.overs = append(r.overs, reason) },
	}
}

func newTestEngine(t *testing.T, src *stubSource) *Engine {
	t.Helper()
	e := NewEngine(src, "room-1")
	e.tickEvery = time.Hour // ticks driven manually via tick()
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return e
}

func TestInitializeFallsBackOnSourceFailure(t *testing.T) {
	src := &stubSource{err: fmt.Errorf("generator down")}
	e := NewEngine(src, "room-1")
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize should not surface source errors, got %v", err)
	}
	if _, ok := e.NextQuestion(); !ok {
		t.Fatalf("expected fallback questions to be available")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if got := src.requestCount(); got != 1 {
		t.Fatalf("expected one source request, got %d", got)
	}
}

func TestQuestionsNeverRepeatWithinSession(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)

	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		q, ok := e.NextQuestion()
		if !ok {
			t.Fatalf("pool exhausted after %d questions", i)
		}
		key := normalizeText(q.Text)
		if _, dup := seen[key]; dup {
			t.Fatalf("question %q served twice", q.Text)
		}
		seen[key] = struct{}{}
	}
	if _, ok := e.NextQuestion(); ok {
		t.Fatalf("expected exhausted pool after session limit")
	}
}

func TestResetAllowsReplayButKeepsLifetimeCounter(t *testing.T) {
	src := &stubSource{questions: testQuestions(3)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(1)

	first, _ := e.NextQuestion()
	if correct, points := e.ValidateAnswer(first.Correct); !correct || points != PointsPerQuestion {
		t.Fatalf("expected correct answer worth %d, got correct=%v points=%d", PointsPerQuestion, correct, points)
	}
	round, total := e.QuestionsAnswered()
	if round != 1 || total != 1 {
		t.Fatalf("expected counters 1/1, got %d/%d", round, total)
	}

	e.Reset()
	round, total = e.QuestionsAnswered()
	if round != 0 {
		t.Fatalf("reset should clear the round counter, got %d", round)
	}
	if total != 1 {
		t.Fatalf("reset should keep the lifetime counter, got %d", total)
	}
	// Served texts are forgotten, so the same questions may come back.
	for i := 0; i < 3; i++ {
		if _, ok := e.NextQuestion(); !ok {
			t.Fatalf("expected question %d after reset", i+1)
		}
	}
}

func TestSelectionAcceptedOnlyDuringSelectionPhase(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(2)
	rec := &recorder{}
	e.SetCallbacks(rec.callbacks())

	e.NextQuestion()
	e.StartPhaseTimer()

	if e.RecordSelection("c1", "B") {
		t.Fatalf("selection must be rejected during analysis")
	}
	for i := 0; i < AnalysisSeconds; i++ {
		e.tick()
	}
	if e.Phase() != domain.PhaseSelection {
		t.Fatalf("expected selection phase, got %s", e.Phase())
	}
	if !e.RecordSelection("c1", "B") {
		t.Fatalf("selection must be accepted during selection phase")
	}
}

func TestSecondSelectionFromSameControllerIsRejected(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(2)
	e.NextQuestion()
	e.StartPhaseTimer()
	for i := 0; i < AnalysisSeconds; i++ {
		e.tick()
	}

	if !e.RecordSelection("c1", "B") {
		t.Fatalf("first selection rejected")
	}
	if e.RecordSelection("c1", "C") {
		t.Fatalf("second selection must be rejected")
	}
	if got := e.Selections()["c1"]; got != "B" {
		t.Fatalf("first selection must not be overwritten, got %q", got)
	}
}

func TestRevealAnyCorrectScoresOnceAndContinues(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(2)
	rec := &recorder{}
	e.SetCallbacks(rec.callbacks())

	first, _ := e.NextQuestion()
	e.StartPhaseTimer()
	for i := 0; i < AnalysisSeconds; i++ {
		e.tick()
	}
	e.RecordSelection("c1", first.Correct)
	e.RecordSelection("c2", "D") // wrong; shared fate still holds
	for i := 0; i < SelectionSeconds; i++ {
		e.tick()
	}

	if len(rec.reveals) != 1 {
		t.Fatalf("expected one reveal, got %d", len(rec.reveals))
	}
	reveal := rec.reveals[0]
	if !reveal.AnyCorrect || reveal.Points != PointsPerQuestion {
		t.Fatalf("expected shared single award of %d, got %+v", PointsPerQuestion, reveal)
	}
	if len(rec.overs) != 0 {
		t.Fatalf("game must continue after a correct round, got %v", rec.overs)
	}

	for i := 0; i < RevealSeconds; i++ {
		e.tick()
	}
	if len(rec.questions) != 1 {
		t.Fatalf("expected the next question after reveal, got %d", len(rec.questions))
	}
	if normalizeText(rec.questions[0].Text) == normalizeText(first.Text) {
		t.Fatalf("next question repeated the first")
	}
	if e.Phase() != domain.PhaseAnalysis {
		t.Fatalf("expected analysis phase for question 2, got %s", e.Phase())
	}
}

func TestRevealWithNoCorrectSelectionEndsGame(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(2)
	rec := &recorder{}
	e.SetCallbacks(rec.callbacks())

	e.NextQuestion()
	e.StartPhaseTimer()
	for i := 0; i < AnalysisSeconds; i++ {
		e.tick()
	}
	// Nobody submits anything: silence is not partial credit.
	for i := 0; i < SelectionSeconds; i++ {
		e.tick()
	}

	if len(rec.reveals) != 1 || rec.reveals[0].AnyCorrect {
		t.Fatalf("expected an all-wrong reveal, got %+v", rec.reveals)
	}
	if len(rec.overs) != 1 || rec.overs[0] != domain.ReasonAllWrong {
		t.Fatalf("expected game over with all_wrong, got %v", rec.overs)
	}
}

func TestGameCompletesWhenPoolIsSpent(t *testing.T) {
	src := &stubSource{questions: testQuestions(2)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(2)
	rec := &recorder{}
	e.SetCallbacks(rec.callbacks())

	q, _ := e.NextQuestion()
	e.StartPhaseTimer()
	for round := 0; round < 2; round++ {
		for i := 0; i < AnalysisSeconds; i++ {
			e.tick()
		}
		e.RecordSelection("c1", q.Correct)
		for i := 0; i < SelectionSeconds; i++ {
			e.tick()
		}
		for i := 0; i < RevealSeconds; i++ {
			e.tick()
		}
		q, _ = e.CurrentQuestion()
	}

	if len(rec.overs) != 1 || rec.overs[0] != domain.ReasonCompleted {
		t.Fatalf("expected completion after the pool was spent, got %v", rec.overs)
	}
}

func TestSinglePlayerCountdownFiresGameOver(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(1)
	rec := &recorder{}
	e.SetCallbacks(rec.callbacks())

	e.NextQuestion()
	e.StartTimer()
	for i := 0; i < SinglePlayerSeconds; i++ {
		e.tick()
	}

	if len(rec.ticks) != SinglePlayerSeconds {
		t.Fatalf("expected %d ticks, got %d", SinglePlayerSeconds, len(rec.ticks))
	}
	if rec.ticks[0] != SinglePlayerSeconds-1 || rec.ticks[len(rec.ticks)-1] != 0 {
		t.Fatalf("unexpected tick sequence: first=%d last=%d", rec.ticks[0], rec.ticks[len(rec.ticks)-1])
	}
	if len(rec.overs) != 1 || rec.overs[0] != domain.ReasonTimeUp {
		t.Fatalf("expected time_up game over, got %v", rec.overs)
	}
}

func TestAnswersRejectedAfterGameOver(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(1)
	e.NextQuestion()
	e.StartTimer()
	for i := 0; i < SinglePlayerSeconds; i++ {
		e.tick()
	}

	q, ok := e.CurrentQuestion()
	if !ok {
		t.Fatalf("current question missing")
	}
	if correct, points := e.ValidateAnswer(q.Correct); correct || points != 0 {
		t.Fatalf("answer after game over must not score, got correct=%v points=%d", correct, points)
	}
	if round, _ := e.QuestionsAnswered(); round != 0 {
		t.Fatalf("post-game answer must not count, got %d", round)
	}

	// A restart clears the latch.
	e.Reset()
	next, ok := e.NextQuestion()
	if !ok {
		t.Fatalf("no question after reset")
	}
	if correct, _ := e.ValidateAnswer(next.Correct); !correct {
		t.Fatalf("answers must score again after reset")
	}
}

func TestResetCountdownRestoresFullClock(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.SetPlayerCount(1)
	rec := &recorder{}
	e.SetCallbacks(rec.callbacks())

	e.NextQuestion()
	e.StartTimer()
	for i := 0; i < 5; i++ {
		e.tick()
	}
	e.ResetCountdown()
	e.tick()
	if last := rec.ticks[len(rec.ticks)-1]; last != SinglePlayerSeconds-1 {
		t.Fatalf("expected countdown back at %d, got %d", SinglePlayerSeconds-1, last)
	}
}

func TestRefillTopsUpTowardSessionLimit(t *testing.T) {
	src := &stubSource{questions: testQuestions(4)}
	e := newTestEngine(t, src)
	if got := len(e.pool); got != 4 {
		t.Fatalf("expected initial pool of 4, got %d", got)
	}

	src.mu.Lock()
	src.questions = testQuestions(10)[4:] // fresh texts only
	src.mu.Unlock()

	e.refill()
	if got := len(e.pool); got != SessionQuestionLimit {
		t.Fatalf("expected pool topped up to %d, got %d", SessionQuestionLimit, got)
	}
}

func TestDestroyReleasesPoolExactlyOnce(t *testing.T) {
	src := &stubSource{questions: testQuestions(10)}
	e := newTestEngine(t, src)
	e.Destroy()
	e.Destroy()
	if released := src.releasedSessions(); len(released) != 1 || released[0] != "room-1" {
		t.Fatalf("expected a single release of room-1, got %v", released)
	}
}
