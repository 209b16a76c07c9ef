package engine_test

import (
	"errors"
	"testing"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
)

func battleSession(t *testing.T, provider *fakeProvider, questions, pool []engine.RawQuestion) *engine.Session {
	t.Helper()
	provider.fetchResp = engine.FetchResponse{
		SessionID:        "s-1",
		BattleSessionID:  "btl-1",
		Questions:        questions,
		ReplaceQuestions: pool,
	}
	return startSession(t, provider, nil, newFakeClock(), engine.StartRequest{
		Mode:        domain.ModeBattle,
		ReferenceID: "btl-1",
	})
}

func TestPowerUpSingleUsePerSession(t *testing.T) {
	provider := &fakeProvider{}
	session := battleSession(t, provider, rawQuestions(3, "easy", 600), nil)
	defer session.Quit()

	if err := session.UsePowerUp(domain.PowerUpExtend); err != nil {
		t.Fatalf("first power-up: %v", err)
	}
	if err := session.UsePowerUp(domain.PowerUpEliminate); !errors.Is(err, domain.ErrPowerUpSpent) {
		t.Fatalf("expected spent error, got %v", err)
	}

	// Still spent on the next question.
	answerCorrect(t, session)
	if err := session.UsePowerUp(domain.PowerUpSwap); !errors.Is(err, domain.ErrPowerUpSpent) {
		t.Fatalf("expected spent error on later question, got %v", err)
	}
}

func TestExtendTimeAddsThirtySeconds(t *testing.T) {
	provider := &fakeProvider{}
	session := battleSession(t, provider, rawQuestions(1, "easy", 600), nil)
	defer session.Quit()

	before := session.Timer().Remaining()
	if err := session.UsePowerUp(domain.PowerUpExtend); err != nil {
		t.Fatalf("extend: %v", err)
	}
	after := session.Timer().Remaining()
	if after-before < 29 || after-before > 30 {
		t.Fatalf("expected ~30s added, got %d", after-before)
	}
	if session.Timer().Max() < after {
		t.Fatalf("display ceiling must cover the extended time")
	}
	if provider.submissionCount() != 0 {
		t.Fatalf("extend must not submit anything")
	}
}

func TestEliminateRemovesExactlyOneWrongOption(t *testing.T) {
	provider := &fakeProvider{}
	session := battleSession(t, provider, rawQuestions(1, "easy", 600), nil)
	defer session.Quit()

	events, cancel := session.Subscribe()
	defer cancel()
	initial := nextEvent(t, events, engine.EventQuestion)
	if len(initial.Question.Options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(initial.Question.Options))
	}

	if err := session.UsePowerUp(domain.PowerUpEliminate); err != nil {
		t.Fatalf("eliminate: %v", err)
	}
	view := nextEvent(t, events, engine.EventQuestion)
	if len(view.Question.Options) != 3 {
		t.Fatalf("expected 3 options after eliminate, got %d", len(view.Question.Options))
	}

	q := session.CurrentQuestion()
	correctVisible := false
	var removedID string
	seen := map[string]bool{}
	for _, opt := range view.Question.Options {
		seen[opt.ID] = true
		if opt.ID == q.CorrectOptionID {
			correctVisible = true
		}
	}
	for _, opt := range q.Options {
		if !seen[opt.ID] {
			removedID = opt.ID
		}
	}
	if !correctVisible {
		t.Fatalf("eliminate removed the correct option")
	}
	if removedID == q.CorrectOptionID {
		t.Fatalf("removed option must be wrong")
	}

	// The removed option is no longer selectable.
	if err := session.SelectAnswer(removedID); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected removed option rejected, got %v", err)
	}
	if provider.submissionCount() != 0 {
		t.Fatalf("eliminate must not submit anything")
	}
}

func TestSwapReplacesCurrentQuestionInPlace(t *testing.T) {
	questions := rawQuestions(4, "easy", 600)
	questions[1].Difficulty = "hard"
	pool := []engine.RawQuestion{rawQuestion("bq-r1", "hard", 600)}

	provider := &fakeProvider{}
	session := battleSession(t, provider, questions, pool)
	defer session.Quit()

	answerCorrect(t, session) // move onto the hard question

	before := session.CurrentQuestion()
	if err := session.UsePowerUp(domain.PowerUpSwap); err != nil {
		t.Fatalf("swap: %v", err)
	}

	if session.CurrentIndex() != 1 {
		t.Fatalf("swap must not advance, index is %d", session.CurrentIndex())
	}
	if session.QuestionCount() != 4 {
		t.Fatalf("swap must keep session length, got %d", session.QuestionCount())
	}
	after := session.CurrentQuestion()
	if after.BackendQuizID != "bq-r1" || after.BackendQuizID == before.BackendQuizID {
		t.Fatalf("expected replacement question, got %s", after.BackendQuizID)
	}
	if session.ReplacementPoolSize() != 0 {
		t.Fatalf("replacement must leave the pool, %d left", session.ReplacementPoolSize())
	}

	// The swapped-out question self-reported as correct with no elapsed time.
	waitFor(t, func() bool { return provider.submissionCount() >= 2 }, "swap self-report")
	sub := provider.submission(1)
	if sub.QuizID != before.BackendQuizID || sub.Correct != 1 {
		t.Fatalf("unexpected swap report: %+v", sub)
	}
	if sub.TimeMs != nil {
		t.Fatalf("swap report must carry null time, got %v", *sub.TimeMs)
	}
	if sub.PowerUpID == nil || *sub.PowerUpID != 3 {
		t.Fatalf("swap report must carry power-up id 3, got %v", sub.PowerUpID)
	}

	// Answering the replacement must not re-report the swap.
	answerCorrect(t, session)
	waitFor(t, func() bool { return provider.submissionCount() >= 3 }, "replacement answer")
	if sub := provider.submission(2); sub.PowerUpID != nil {
		t.Fatalf("swap must not be re-reported, got %v", sub.PowerUpID)
	}

	// Elapsed time from the swapped question is not accumulated.
	if got := session.TotalElapsed(); got != 0 {
		t.Fatalf("expected zero accumulated time, got %v", got)
	}
}

func TestSwapWithEmptyPoolIsNotConsumed(t *testing.T) {
	provider := &fakeProvider{}
	session := battleSession(t, provider, rawQuestions(2, "easy", 600), []engine.RawQuestion{rawQuestion("bq-r1", "hard", 600)})
	defer session.Quit()

	err := session.UsePowerUp(domain.PowerUpSwap)
	if !errors.Is(err, domain.ErrNoReplacement) {
		t.Fatalf("expected no-replacement error, got %v", err)
	}
	if session.PowerUpUsed() {
		t.Fatalf("failed swap must not consume the power-up")
	}
	if provider.submissionCount() != 0 {
		t.Fatalf("failed swap must not submit anything")
	}

	// The power-up remains available for another kind.
	if err := session.UsePowerUp(domain.PowerUpExtend); err != nil {
		t.Fatalf("extend after failed swap: %v", err)
	}
}

func TestPowerUpRequiresActiveState(t *testing.T) {
	provider := &fakeProvider{}
	session := battleSession(t, provider, rawQuestions(2, "easy", 600), nil)
	defer session.Quit()

	answerWrong(t, session) // now in Explanation
	if err := session.UsePowerUp(domain.PowerUpExtend); !errors.Is(err, domain.ErrInputLocked) {
		t.Fatalf("expected locked error in explanation, got %v", err)
	}
	if session.PowerUpUsed() {
		t.Fatalf("rejected power-up must not be consumed")
	}
}
