package app

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SamuelNikhil/QuizWall-game/internal/domain"
)

const (
	// SessionQuestionLimit is the hard cap on questions per session. Refill
	// only tops the pool back up toward this limit, it never extends it.
	SessionQuestionLimit = 10
	// refill kicks in when fewer unused questions than this remain.
	refillLowWater = 3

	// SinglePlayerSeconds is the continuous countdown for one controller.
	SinglePlayerSeconds = 30
	// AnalysisSeconds shows the question with input disabled.
	AnalysisSeconds = 10
	// SelectionSeconds is the window for one selection per controller.
	SelectionSeconds = 7
	// RevealSeconds shows the correct answer and everyone's picks.
	RevealSeconds = 3

	// PointsPerQuestion is the single shared award for a correct round.
	PointsPerQuestion = 100
)

// QuestionSource supplies validated questions for a session. Request may be
// slow (generation, network); callers must not invoke it while holding game
// state locks. Release frees the session's allocation in the source.
type QuestionSource interface {
	Request(ctx context.Context, sessionID string, n int) ([]domain.Question, error)
	Release(sessionID string)
}

// RevealResult is the outcome of multiplayer answer arbitration for one
// question: the round scores once if anyone was right, and the game ends if
// nobody was (including nobody answering at all).
type RevealResult struct {
	CorrectOption string
	Selections    map[string]string
	AnyCorrect    bool
	Points        int
}

// EngineCallbacks receive timer and phase events. All callbacks are invoked
// outside the engine's lock, so they may call back into the engine.
type EngineCallbacks struct {
	OnTick     func(secondsLeft int)
	OnPhase    func(phase domain.Phase, secondsLeft, questionNumber int)
	OnQuestion func(q domain.ClientQuestion, number int)
	OnReveal   func(r RevealResult)
	OnGameOver func(reason domain.GameOverReason)
}

// Engine owns one room's question sequencing, timing, and answer
// arbitration. It runs in one of two modes chosen by the controller count at
// game start: a continuous 30-second countdown for a single player, or the
// analysis/selection/reveal phase cycle for two or three.
type Engine struct {
	source    QuestionSource
	sessionID string
	sf        singleflight.Group

	mu            sync.Mutex
	rnd           *rand.Rand
	cbs           EngineCallbacks
	initialized   bool
	destroyed     bool
	over          bool
	pool          []domain.Question
	used          map[string]struct{}
	current       *domain.Question
	playerCount   int
	phase         domain.Phase
	phaseLeft     int
	timeLeft      int
	questionNum   int
	selections    map[string]string
	answeredRound int
	answeredTotal int
	tickEvery     time.Duration
	stopTick      chan struct{}
}

func NewEngine(source QuestionSource, sessionID string) *Engine {
	return &Engine{
		source:     source,
		sessionID:  sessionID,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		used:       make(map[string]struct{}),
		selections: make(map[string]string),
		tickEvery:  time.Second,
	}
}

// Initialize pulls the session's question pool from the source, falling back
// to the built-in set on failure so a game can always start. Idempotent:
// concurrent and repeated calls load at most once.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized || e.destroyed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	_, err, _ := e.sf.Do("init", func() (any, error) {
		questions, err := e.source.Request(ctx, e.sessionID, SessionQuestionLimit)
		if err != nil || len(questions) == 0 {
			if err != nil {
				log.Printf("question source failed for session %s, using fallback set: %v", e.sessionID, err)
			}
			questions = DefaultQuestions()
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.initialized {
			e.pool = dedupeQuestions(questions, SessionQuestionLimit)
			e.initialized = true
		}
		return nil, nil
	})
	return err
}

// SetPlayerCount fixes the timing mode. Captured once at game start; later
// membership changes do not change mode.
func (e *Engine) SetPlayerCount(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playerCount = n
}

// PlayerCount returns the controller count captured at game start.
func (e *Engine) PlayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playerCount
}

// SetCallbacks wires the event sinks. Must be called before starting timers.
func (e *Engine) SetCallbacks(cbs EngineCallbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cbs = cbs
}

// NextQuestion picks uniformly at random among not-yet-served questions,
// marks it served by normalized text, and makes it current. Returns false
// when the pool is exhausted; callers treat that as session complete, not a
// hard failure, since refill keeps the pool topped up in normal play.
func (e *Engine) NextQuestion() (domain.Question, bool) {
	e.mu.Lock()
	q, ok := e.nextQuestionLocked()
	needRefill := e.initialized && !e.destroyed && e.unusedCountLocked() < refillLowWater && len(e.pool) < SessionQuestionLimit
	e.mu.Unlock()

	if needRefill {
		go e.refill()
	}
	return q, ok
}

func (e *Engine) nextQuestionLocked() (domain.Question, bool) {
	candidates := make([]int, 0, len(e.pool))
	for i := range e.pool {
		if _, served := e.used[normalizeText(e.pool[i].Text)]; !served {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		e.current = nil
		return domain.Question{}, false
	}
	q := e.pool[candidates[e.rnd.Intn(len(candidates))]]
	e.used[normalizeText(q.Text)] = struct{}{}
	e.current = &q
	e.questionNum++
	e.selections = make(map[string]string)
	return q, true
}

func (e *Engine) unusedCountLocked() int {
	n := 0
	for i := range e.pool {
		if _, served := e.used[normalizeText(e.pool[i].Text)]; !served {
			n++
		}
	}
	return n
}

// refill tops the pool back up toward the session limit in the background.
// Deduplicated via singleflight so overlapping triggers fetch once; a slow
// source never blocks a tick because this runs off the timer goroutine.
func (e *Engine) refill() {
	_, _, _ = e.sf.Do("refill", func() (any, error) {
		e.mu.Lock()
		want := SessionQuestionLimit - len(e.pool)
		e.mu.Unlock()
		if want <= 0 {
			return nil, nil
		}

		questions, err := e.source.Request(context.Background(), e.sessionID, want)
		if err != nil {
			log.Printf("question refill failed for session %s: %v", e.sessionID, err)
			return nil, nil
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.destroyed {
			return nil, nil
		}
		seen := make(map[string]struct{}, len(e.pool))
		for i := range e.pool {
			seen[normalizeText(e.pool[i].Text)] = struct{}{}
		}
		for _, q := range questions {
			if len(e.pool) >= SessionQuestionLimit {
				break
			}
			key := normalizeText(q.Text)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			e.pool = append(e.pool, q)
		}
		return nil, nil
	})
}

// CurrentQuestion returns the in-flight question, or false when none is.
func (e *Engine) CurrentQuestion() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return domain.Question{}, false
	}
	return *e.current, true
}

// QuestionNumber is the 1-based sequence number of the current question.
func (e *Engine) QuestionNumber() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questionNum
}

// StartTimer begins single-player mode: a 30-second countdown ticking once
// per second, firing game over at zero.
func (e *Engine) StartTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.timeLeft = SinglePlayerSeconds
	e.startTickerLocked()
}

// ResetCountdown puts the single-player clock back to 30 seconds after a
// correct answer.
func (e *Engine) ResetCountdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeLeft = SinglePlayerSeconds
}

// StartPhaseTimer begins multiplayer mode at the analysis phase of the
// current question. The opening phaseChange fires immediately so clients can
// sync their countdowns.
func (e *Engine) StartPhaseTimer() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.phase = domain.PhaseAnalysis
	e.phaseLeft = AnalysisSeconds
	onPhase := e.cbs.OnPhase
	phaseLeft, num := e.phaseLeft, e.questionNum
	e.startTickerLocked()
	e.mu.Unlock()

	if onPhase != nil {
		onPhase(domain.PhaseAnalysis, phaseLeft, num)
	}
}

// ValidateAnswer checks a single-player selection against the current
// question and awards the fixed points on a match. Once the engine has fired
// game over, nothing scores until Reset.
func (e *Engine) ValidateAnswer(optionID string) (correct bool, points int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.over || e.current == nil || optionID != e.current.Correct {
		return false, 0
	}
	e.answeredRound++
	e.answeredTotal++
	return true, PointsPerQuestion
}

// RecordSelection stores a controller's pick during the selection phase.
// Exactly one per controller per question; repeats are a silent no-op (most
// likely a duplicate delivery) and do not overwrite the first. A selection
// arriving outside the phase is rejected, never queued.
func (e *Engine) RecordSelection(clientID, optionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed || e.phase != domain.PhaseSelection || e.current == nil {
		return false
	}
	if _, dup := e.selections[clientID]; dup {
		return false
	}
	e.selections[clientID] = optionID
	return true
}

// Selections snapshots the current question's recorded picks.
func (e *Engine) Selections() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.selections))
	for k, v := range e.selections {
		out[k] = v
	}
	return out
}

// QuestionsAnswered returns the correct-answer counters: this round's and
// the room's lifetime total across restarts.
func (e *Engine) QuestionsAnswered() (round, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answeredRound, e.answeredTotal
}

// Phase returns the active multiplayer phase, empty outside multiplayer play.
func (e *Engine) Phase() domain.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// StopTimer halts the countdown without touching any other state.
// Idempotent: stopping a stopped timer is a no-op.
func (e *Engine) StopTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
}

// Reset clears phase, timers, selections, the served-question set, and the
// per-round counter for an in-room restart. The lifetime answered counter
// and the loaded pool survive until the room is destroyed.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
	e.over = false
	e.phase = ""
	e.phaseLeft = 0
	e.timeLeft = 0
	e.questionNum = 0
	e.current = nil
	e.used = make(map[string]struct{})
	e.selections = make(map[string]string)
	e.answeredRound = 0
}

// Destroy stops all timers and releases the session's allocation in the
// question source. Safe to call more than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	e.stopTickerLocked()
	e.mu.Unlock()

	e.source.Release(e.sessionID)
}

// startTickerLocked replaces any running ticker goroutine. Caller holds mu.
func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	stop := make(chan struct{})
	e.stopTick = stop
	interval := e.tickEvery
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.tick()
			}
		}
	}()
}

// stopTickerLocked is idempotent: stopping a stopped timer is a no-op.
func (e *Engine) stopTickerLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// tick advances the active timer by one second. All state moves under the
// lock; callbacks collected along the way fire after it is released.
func (e *Engine) tick() {
	e.mu.Lock()
	var fire []func()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	if e.playerCount <= 1 {
		fire = e.tickSingleLocked()
	} else {
		fire = e.tickPhaseLocked()
	}
	e.mu.Unlock()

	for _, f := range fire {
		f()
	}
}

func (e *Engine) tickSingleLocked() []func() {
	var fire []func()
	e.timeLeft--
	left := e.timeLeft
	if cb := e.cbs.OnTick; cb != nil {
		fire = append(fire, func() { cb(left) })
	}
	if left <= 0 {
		e.over = true
		e.stopTickerLocked()
		if cb := e.cbs.OnGameOver; cb != nil {
			fire = append(fire, func() { cb(domain.ReasonTimeUp) })
		}
	}
	return fire
}

func (e *Engine) tickPhaseLocked() []func() {
	var fire []func()
	e.phaseLeft--
	if e.phaseLeft > 0 {
		phase, left, num := e.phase, e.phaseLeft, e.questionNum
		if cb := e.cbs.OnPhase; cb != nil {
			fire = append(fire, func() { cb(phase, left, num) })
		}
		return fire
	}

	switch e.phase {
	case domain.PhaseAnalysis:
		e.phase = domain.PhaseSelection
		e.phaseLeft = SelectionSeconds
		e.selections = make(map[string]string)
		fire = e.appendPhaseLocked(fire)

	case domain.PhaseSelection:
		e.phase = domain.PhaseReveal
		e.phaseLeft = RevealSeconds
		result := e.resolveRevealLocked()
		fire = e.appendPhaseLocked(fire)
		if cb := e.cbs.OnReveal; cb != nil {
			fire = append(fire, func() { cb(result) })
		}
		if !result.AnyCorrect {
			e.over = true
			e.stopTickerLocked()
			if cb := e.cbs.OnGameOver; cb != nil {
				fire = append(fire, func() { cb(domain.ReasonAllWrong) })
			}
		}

	case domain.PhaseReveal:
		if e.questionNum >= SessionQuestionLimit {
			fire = e.gameOverLocked(fire, domain.ReasonCompleted)
			return fire
		}
		q, ok := e.nextQuestionLocked()
		if !ok {
			fire = e.gameOverLocked(fire, domain.ReasonCompleted)
			return fire
		}
		e.phase = domain.PhaseAnalysis
		e.phaseLeft = AnalysisSeconds
		num := e.questionNum
		if cb := e.cbs.OnQuestion; cb != nil {
			client := q.Client()
			fire = append(fire, func() { cb(client, num) })
		}
		fire = e.appendPhaseLocked(fire)
	}
	return fire
}

// resolveRevealLocked arbitrates the round: any correct selection scores the
// shared award once, and a round with no correct selection (or none at all)
// is a loss for everyone.
func (e *Engine) resolveRevealLocked() RevealResult {
	result := RevealResult{
		Selections: make(map[string]string, len(e.selections)),
	}
	if e.current != nil {
		result.CorrectOption = e.current.Correct
	}
	for clientID, optionID := range e.selections {
		result.Selections[clientID] = optionID
		if e.current != nil && optionID == e.current.Correct {
			result.AnyCorrect = true
		}
	}
	if result.AnyCorrect {
		result.Points = PointsPerQuestion
		e.answeredRound++
		e.answeredTotal++
	}
	return result
}

func (e *Engine) appendPhaseLocked(fire []func()) []func() {
	phase, left, num := e.phase, e.phaseLeft, e.questionNum
	if cb := e.cbs.OnPhase; cb != nil {
		fire = append(fire, func() { cb(phase, left, num) })
	}
	return fire
}

func (e *Engine) gameOverLocked(fire []func(), reason domain.GameOverReason) []func() {
	e.over = true
	e.stopTickerLocked()
	e.phase = ""
	if cb := e.cbs.OnGameOver; cb != nil {
		fire = append(fire, func() { cb(reason) })
	}
	return fire
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func dedupeQuestions(questions []domain.Question, limit int) []domain.Question {
	out := make([]domain.Question, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, q := range questions {
		if len(out) >= limit {
			break
		}
		key := normalizeText(q.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}
