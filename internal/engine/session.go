package engine

import (
	"math/rand"
	"sync"
	"time"

	"quiz-session-engine/internal/domain"
)

// State is the per-question phase of a running session. Completed and Quit
// are terminal and session-wide.
type State int

const (
	StateActive State = iota
	StateLocked
	StateExplanation
	StateCompleted
	StateQuit
)

// EventType tags the events a session emits to its subscribers.
type EventType string

const (
	EventQuestion  EventType = "question"
	EventOutcome   EventType = "outcome"
	EventCompleted EventType = "completed"
	EventClosed    EventType = "closed"
)

// QuestionView is the renderable face of the current question. Options
// removed by a power-up are already filtered out.
type QuestionView struct {
	Index            int                   `json:"index"`
	Total            int                   `json:"total"`
	PromptHTML       string                `json:"html"`
	Options          []domain.AnswerOption `json:"options"`
	TimeLimitSec     int                   `json:"timeSec"`
	MaxSec           int                   `json:"maxSec"`
	PowerUpAvailable bool                  `json:"powerUpAvailable"`
}

// OutcomeView reports how the current question resolved.
type OutcomeView struct {
	Outcome         domain.AnswerOutcome `json:"outcome"`
	CorrectOptionID string               `json:"correctId"`
	ExplanationHTML string               `json:"explanation,omitempty"`
	CorrectCount    int                  `json:"correctCount"`
}

// Event is one update on a session's subscription stream.
type Event struct {
	Type     EventType       `json:"type"`
	Question *QuestionView   `json:"question,omitempty"`
	Outcome  *OutcomeView    `json:"outcome,omitempty"`
	Summary  *domain.Summary `json:"summary,omitempty"`
}

// Session is one run through an ordered list of questions. All mutation goes
// through the transition methods below; the mutex serializes user input
// against the timer goroutine and submission callbacks.
type Session struct {
	mu sync.Mutex

	id              string
	mode            domain.Mode
	title           string
	battleSessionID string

	questions []domain.Question
	pool      []domain.Question

	idx          int
	state        State
	correctCount int
	totalElapsed time.Duration

	powerUpUsed    bool
	usedPowerUp    domain.PowerUpKind
	powerUpQIdx    int
	removedOptions map[string]struct{}

	questionStart time.Time
	lastResult    *domain.SubmissionResult
	summary       *domain.Summary
	quitRequested bool

	timer     *TimerController
	submitter *Submitter
	provider  QuestionProvider
	refresher CacheRefresher

	now func() time.Time
	rnd *rand.Rand

	subscribers map[chan Event]struct{}
	closed      bool
}

// SessionID returns the backend session id.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentIndex returns the zero-based index of the question in play.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// CorrectCount returns the number of correctly answered questions so far.
func (s *Session) CorrectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correctCount
}

// TotalElapsed returns the accumulated answer time.
func (s *Session) TotalElapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalElapsed
}

// PowerUpUsed reports whether the single per-session power-up is spent.
func (s *Session) PowerUpUsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.powerUpUsed
}

// QuestionCount returns the session length; it is invariant under swaps.
func (s *Session) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

// CurrentQuestion returns a copy of the question at the current index.
func (s *Session) CurrentQuestion() domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.idx]
}

// ReplacementPoolSize returns how many swap candidates remain.
func (s *Session) ReplacementPoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

// Timer exposes the countdown for display purposes.
func (s *Session) Timer() *TimerController {
	return s.timer
}

// Subscribe returns a channel receiving session events, primed with a
// snapshot of the current state. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) snapshotLocked() Event {
	switch s.state {
	case StateExplanation:
		return Event{Type: EventOutcome, Outcome: s.outcomeViewLocked(domain.OutcomeIncorrect)}
	case StateCompleted:
		if s.summary != nil {
			return Event{Type: EventCompleted, Summary: s.summary}
		}
		return Event{Type: EventCompleted}
	case StateQuit:
		return Event{Type: EventClosed}
	default:
		return Event{Type: EventQuestion, Question: s.questionViewLocked()}
	}
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest update rather than block the state machine on a
			// slow consumer.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) questionViewLocked() *QuestionView {
	q := s.questions[s.idx]
	options := make([]domain.AnswerOption, 0, len(q.Options))
	for _, opt := range q.Options {
		if _, removed := s.removedOptions[opt.ID]; removed {
			continue
		}
		options = append(options, opt)
	}
	return &QuestionView{
		Index:            s.idx,
		Total:            len(s.questions),
		PromptHTML:       q.PromptHTML,
		Options:          options,
		TimeLimitSec:     q.TimeLimitSec,
		MaxSec:           s.timer.Max(),
		PowerUpAvailable: !s.powerUpUsed,
	}
}

func (s *Session) outcomeViewLocked(outcome domain.AnswerOutcome) *OutcomeView {
	q := s.questions[s.idx]
	return &OutcomeView{
		Outcome:         outcome,
		CorrectOptionID: q.CorrectOptionID,
		ExplanationHTML: q.ExplanationHTML,
		CorrectCount:    s.correctCount,
	}
}

// SelectAnswer judges a user-submitted option. Input is locked for the rest
// of the question; repeated taps are rejected without side effects.
func (s *Session) SelectAnswer(optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
	case StateCompleted, StateQuit:
		return domain.ErrSessionOver
	default:
		return domain.ErrInputLocked
	}

	if _, removed := s.removedOptions[optionID]; removed {
		return domain.ErrOptionNotFound
	}
	q := s.questions[s.idx]
	known := false
	for _, opt := range q.Options {
		if opt.ID == optionID {
			known = true
			break
		}
	}
	if !known {
		return domain.ErrOptionNotFound
	}

	outcome := domain.OutcomeIncorrect
	if optionID == q.CorrectOptionID {
		outcome = domain.OutcomeCorrect
	}
	s.resolveLocked(outcome)
	return nil
}

// handleTimeout is the timer's one-shot callback. A timeout racing a
// selection loses if the selection locked input first: by the time the
// callback acquires the mutex the selection has restarted the countdown,
// so the generation check rejects it even though the next question is
// Active again.
func (s *Session) handleTimeout(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || gen != s.timer.Generation() {
		return
	}
	s.resolveLocked(domain.OutcomeTimeout)
}

// resolveLocked is the single path from Active to a judged question: it locks
// input, cancels the countdown, accumulates elapsed time, reports the result,
// and transitions.
func (s *Session) resolveLocked(outcome domain.AnswerOutcome) {
	s.state = StateLocked
	s.timer.Cancel()

	elapsed := s.now().Sub(s.questionStart)
	if elapsed < 0 {
		elapsed = 0
	}
	s.totalElapsed += elapsed
	if outcome == domain.OutcomeCorrect {
		s.correctCount++
	}

	ms := elapsed.Milliseconds()
	s.submitter.Enqueue(domain.ResultSubmission{
		SessionID: s.id,
		QuizID:    s.questions[s.idx].BackendQuizID,
		Correct:   outcome.WireCode(),
		TimeMs:    &ms,
		PowerUpID: s.reportablePowerUpLocked(),
	})

	if outcome == domain.OutcomeIncorrect {
		s.state = StateExplanation
		s.broadcastLocked(Event{Type: EventOutcome, Outcome: s.outcomeViewLocked(outcome)})
		return
	}
	s.advanceLocked()
}

// reportablePowerUpLocked returns the wire id to attach to the next normal
// submission: only when the power-up was used on this very question, and
// never for swap, which already reported itself.
func (s *Session) reportablePowerUpLocked() *int {
	if !s.powerUpUsed || s.powerUpQIdx != s.idx || s.usedPowerUp == domain.PowerUpSwap {
		return nil
	}
	id := s.usedPowerUp.WireID()
	return &id
}

// ContinueAfterExplanation leaves the explanation overlay and advances.
func (s *Session) ContinueAfterExplanation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateExplanation:
	case StateCompleted, StateQuit:
		return domain.ErrSessionOver
	default:
		return domain.ErrInputLocked
	}
	s.advanceLocked()
	return nil
}

// advanceLocked moves to the next question or ends the session.
func (s *Session) advanceLocked() {
	if s.idx+1 < len(s.questions) {
		s.idx++
		s.state = StateActive
		s.resetQuestionLocked()
		s.broadcastLocked(Event{Type: EventQuestion, Question: s.questionViewLocked()})
		return
	}
	s.state = StateCompleted
	s.timer.Cancel()
	go s.finish()
}

// resetQuestionLocked clears per-question transient state and restarts the
// countdown for the question at the current index.
func (s *Session) resetQuestionLocked() {
	s.removedOptions = make(map[string]struct{})
	s.questionStart = s.now()
	s.timer.Start(s.questions[s.idx].TimeLimitSec)
}

// mergeResult records backend responses that flag session completion.
func (s *Session) mergeResult(result domain.SubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = &result
	if result.BattleSessionID != "" {
		s.battleSessionID = result.BattleSessionID
	}
}
