package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"quiz-session-engine/internal/domain"
)

const defaultTimeLimitSec = 60

// StartRequest describes the session to build.
type StartRequest struct {
	Mode        domain.Mode
	ReferenceID string
	Difficulty  string
	Title       string
	// Prefetched carries battle data already fetched by the matchmaking
	// flow, skipping the initial question request.
	Prefetched *FetchResponse
}

// Loader composes a playable session: it fetches the question batch, runs
// every question through the option shuffler, and starts the first countdown.
type Loader struct {
	provider  QuestionProvider
	refresher CacheRefresher
	randomize bool

	tick time.Duration
	now  func() time.Time
}

// NewLoader builds a loader. randomize is the user's answer-order preference;
// when false, options keep their served order.
func NewLoader(provider QuestionProvider, refresher CacheRefresher, randomize bool) *Loader {
	return NewLoaderWithClock(provider, refresher, randomize, time.Now, time.Second)
}

// NewLoaderWithClock is test-only for deterministic timestamps and
// compressed countdowns.
func NewLoaderWithClock(provider QuestionProvider, refresher CacheRefresher, randomize bool, now func() time.Time, tick time.Duration) *Loader {
	return &Loader{
		provider:  provider,
		refresher: refresher,
		randomize: randomize,
		tick:      tick,
		now:       now,
	}
}

// Start fetches questions and returns a session in the Active state with the
// first question's countdown running. On error no session exists and the
// caller may retry.
func (l *Loader) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if !req.Mode.Valid() {
		return nil, domain.ErrInvalidMode
	}

	resp, err := l.fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if len(resp.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	rnd := rand.New(rand.NewSource(l.now().UnixNano()))

	questions, err := l.transform(resp.Questions, rnd)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	var pool []domain.Question
	if req.Mode.IsBattle() && len(resp.ReplaceQuestions) > 0 {
		pool, err = l.transform(resp.ReplaceQuestions, rnd)
		if err != nil {
			return nil, fmt.Errorf("load replacement pool: %w", err)
		}
	}

	s := &Session{
		id:              resp.SessionID,
		mode:            req.Mode,
		title:           req.Title,
		battleSessionID: resp.BattleSessionID,
		questions:       questions,
		pool:            pool,
		state:           StateActive,
		powerUpQIdx:     -1,
		removedOptions:  make(map[string]struct{}),
		provider:        l.provider,
		refresher:       l.refresher,
		now:             l.now,
		rnd:             rnd,
		subscribers:     make(map[chan Event]struct{}),
	}
	s.timer = NewTimerControllerWithInterval(l.tick, s.handleTimeout)
	s.submitter = NewSubmitter(l.provider, s.mergeResult)

	s.questionStart = l.now()
	s.timer.Start(questions[0].TimeLimitSec)
	return s, nil
}

func (l *Loader) fetch(ctx context.Context, req StartRequest) (FetchResponse, error) {
	if req.Prefetched != nil && req.Mode.IsBattle() {
		return *req.Prefetched, nil
	}
	return l.provider.FetchQuestions(ctx, FetchRequest{
		Mode:        req.Mode,
		ReferenceID: req.ReferenceID,
		Difficulty:  req.Difficulty,
	})
}

// transform turns raw backend questions into playable ones: option ids are
// assigned in served order ('a', 'b', ...), the first served answer is the
// correct one, and the shuffler reorders options without losing track of it.
func (l *Loader) transform(raw []RawQuestion, rnd *rand.Rand) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(raw))
	for i, rq := range raw {
		answers, err := rq.DecodedAnswers()
		if err != nil {
			return nil, fmt.Errorf("question %s: decode answers: %w", rq.QuizID, err)
		}
		if len(answers) == 0 {
			return nil, fmt.Errorf("question %s: %w", rq.QuizID, domain.ErrNoQuestions)
		}

		options := make([]domain.AnswerOption, len(answers))
		for j, html := range answers {
			options[j] = domain.AnswerOption{ID: string(rune('a' + j)), HTML: html}
		}
		shuffled := shuffleOptions(options, rnd, l.randomize)

		limit := rq.TimeSec
		if limit <= 0 {
			limit = defaultTimeLimitSec
		}

		questions = append(questions, domain.Question{
			ID:              fmt.Sprintf("q%d", i+1),
			BackendQuizID:   rq.QuizID,
			PromptHTML:      rq.PromptHTML,
			Options:         shuffled,
			CorrectOptionID: correctOptionID(shuffled, answers[0]),
			TimeLimitSec:    limit,
			Difficulty:      rq.Difficulty,
			ExplanationHTML: rq.Explanation,
		})
	}
	return questions, nil
}
