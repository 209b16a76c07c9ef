// Package local hosts quiz sessions against locally stored question banks,
// for deployments that run without the remote game backend.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
	"github.com/google/uuid"
)

const (
	defaultQuestionCount = 5
	defaultPoolSize      = 3
	pointsPerCorrect     = 10
)

// BankRepository resolves a question bank by id.
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// SessionMarker tracks live hosted sessions (best-effort, may be nil).
type SessionMarker interface {
	MarkLive(ctx context.Context, sessionID string)
	Clear(ctx context.Context, sessionID string)
}

// Config tunes how sessions are drawn from a bank.
type Config struct {
	// QuestionCount is how many questions a session serves.
	QuestionCount int
	// PoolSize is how many extra questions back the swap power-up
	// in battle modes.
	PoolSize int
	// Marker, when set, records live sessions externally.
	Marker SessionMarker
}

// Provider implements engine.QuestionProvider over question banks.
// It tracks each issued session so result submissions can be scored
// and completion detected without a remote backend.
type Provider struct {
	banks  BankRepository
	marker SessionMarker
	count  int
	pool   int

	mu       sync.Mutex
	rnd      *rand.Rand
	sessions map[string]*hostedSession
}

type hostedSession struct {
	bankID          string
	battleSessionID string
	expected        int
	answered        int
	points          int
}

func NewProvider(banks BankRepository, cfg Config) *Provider {
	count := cfg.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	pool := cfg.PoolSize
	if pool < 0 {
		pool = defaultPoolSize
	}
	return &Provider{
		banks:    banks,
		marker:   cfg.Marker,
		count:    count,
		pool:     pool,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*hostedSession),
	}
}

func (p *Provider) FetchQuestions(ctx context.Context, req engine.FetchRequest) (engine.FetchResponse, error) {
	bank, err := p.banks.GetBank(ctx, req.ReferenceID)
	if err != nil {
		return engine.FetchResponse{}, fmt.Errorf("load bank %q: %w", req.ReferenceID, err)
	}

	candidates := filterByDifficulty(bank.Questions, req.Difficulty)
	if len(candidates) == 0 {
		return engine.FetchResponse{}, domain.ErrNoQuestions
	}

	p.mu.Lock()
	p.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	p.mu.Unlock()

	served := candidates
	if len(served) > p.count {
		served = served[:p.count]
	}

	var replacements []domain.BankQuestion
	if req.Mode.IsBattle() && len(candidates) > len(served) {
		rest := candidates[len(served):]
		if len(rest) > p.pool {
			rest = rest[:p.pool]
		}
		replacements = rest
	}

	resp := engine.FetchResponse{
		SessionID: uuid.NewString(),
		Questions: make([]engine.RawQuestion, 0, len(served)),
	}
	if req.Mode.IsBattle() {
		resp.BattleSessionID = uuid.NewString()
	}
	for _, q := range served {
		raw, err := toRaw(q)
		if err != nil {
			return engine.FetchResponse{}, err
		}
		resp.Questions = append(resp.Questions, raw)
	}
	for _, q := range replacements {
		raw, err := toRaw(q)
		if err != nil {
			return engine.FetchResponse{}, err
		}
		resp.ReplaceQuestions = append(resp.ReplaceQuestions, raw)
	}

	p.mu.Lock()
	p.sessions[resp.SessionID] = &hostedSession{
		bankID:          bank.ID,
		battleSessionID: resp.BattleSessionID,
		expected:        len(resp.Questions),
	}
	p.mu.Unlock()

	if p.marker != nil {
		p.marker.MarkLive(ctx, resp.SessionID)
	}
	return resp, nil
}

// SubmitResult scores a per-question report. A swap self-report
// (heroUsedId 3) is recorded but does not count toward completion;
// the replacement question's answer does. The session entry is dropped
// once every expected answer arrived.
func (p *Provider) SubmitResult(ctx context.Context, sub domain.ResultSubmission) (domain.SubmissionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[sub.SessionID]
	if !ok {
		return domain.SubmissionResult{}, domain.ErrSessionNotFound
	}

	swapReport := sub.PowerUpID != nil && *sub.PowerUpID == domain.PowerUpSwap.WireID()
	if !swapReport {
		sess.answered++
		if sub.Correct == domain.OutcomeCorrect.WireCode() {
			sess.points += pointsPerCorrect
		}
	}

	if sess.answered < sess.expected {
		return domain.SubmissionResult{}, nil
	}

	delete(p.sessions, sub.SessionID)
	if p.marker != nil {
		p.marker.Clear(ctx, sub.SessionID)
	}
	return domain.SubmissionResult{
		SessionFinished: true,
		BattleSessionID: sess.battleSessionID,
		Points:          sess.points,
	}, nil
}

// QuitSession retires a hosted session early and drops its entry; a
// repeat quit or a straggling submission reports the session as unknown.
func (p *Provider) QuitSession(ctx context.Context, sessionID string, remainingQuizIDs []string) (domain.QuitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[sessionID]
	if !ok {
		return domain.QuitResult{}, domain.ErrSessionNotFound
	}
	delete(p.sessions, sessionID)
	if p.marker != nil {
		p.marker.Clear(ctx, sessionID)
	}
	return domain.QuitResult{
		Success: true,
		Stats: map[string]any{
			"answered":  sess.answered,
			"points":    sess.points,
			"remaining": len(remainingQuizIDs),
		},
	}, nil
}

// ReportQuestion records a content complaint. Hosted banks have no
// moderation pipeline, so reports are only logged.
func (p *Provider) ReportQuestion(_ context.Context, quizID string) error {
	log.Printf("local provider: question %s reported", quizID)
	return nil
}

func filterByDifficulty(questions []domain.BankQuestion, difficulty string) []domain.BankQuestion {
	out := make([]domain.BankQuestion, 0, len(questions))
	if difficulty != "" {
		for _, q := range questions {
			if q.Difficulty == difficulty {
				out = append(out, q)
			}
		}
		if len(out) > 0 {
			return out
		}
		out = out[:0]
	}
	return append(out, questions...)
}

func toRaw(q domain.BankQuestion) (engine.RawQuestion, error) {
	answers, err := json.Marshal(q.Answers)
	if err != nil {
		return engine.RawQuestion{}, fmt.Errorf("encode answers for %s: %w", q.QuizID, err)
	}
	return engine.RawQuestion{
		QuizID:      q.QuizID,
		PromptHTML:  q.PromptHTML,
		Answers:     string(answers),
		TimeSec:     q.TimeSec,
		Difficulty:  q.Difficulty,
		Explanation: q.Explanation,
	}, nil
}
