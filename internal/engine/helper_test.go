package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
)

// fakeClock lets tests control elapsed-time accounting without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeProvider records every backend interaction.
type fakeProvider struct {
	mu sync.Mutex

	fetchResp  engine.FetchResponse
	fetchErr   error
	fetchCalls int

	submissions []domain.ResultSubmission
	submitErr   error
	// finishAfter flags sessionFinished on the nth submission (1-based).
	finishAfter  int
	finishResult domain.SubmissionResult

	quitCalls  [][]string
	quitErr    error
	quitResult domain.QuitResult

	reported []string
}

func (p *fakeProvider) FetchQuestions(_ context.Context, _ engine.FetchRequest) (engine.FetchResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	if p.fetchErr != nil {
		return engine.FetchResponse{}, p.fetchErr
	}
	return p.fetchResp, nil
}

func (p *fakeProvider) SubmitResult(_ context.Context, sub domain.ResultSubmission) (domain.SubmissionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return domain.SubmissionResult{}, p.submitErr
	}
	p.submissions = append(p.submissions, sub)
	if p.finishAfter > 0 && len(p.submissions) == p.finishAfter {
		result := p.finishResult
		result.SessionFinished = true
		return result, nil
	}
	return domain.SubmissionResult{}, nil
}

func (p *fakeProvider) QuitSession(_ context.Context, _ string, remaining []string) (domain.QuitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, len(remaining))
	copy(ids, remaining)
	p.quitCalls = append(p.quitCalls, ids)
	if p.quitErr != nil {
		return domain.QuitResult{}, p.quitErr
	}
	return p.quitResult, nil
}

func (p *fakeProvider) ReportQuestion(_ context.Context, quizID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reported = append(p.reported, quizID)
	return nil
}

func (p *fakeProvider) submissionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.submissions)
}

func (p *fakeProvider) submission(i int) domain.ResultSubmission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submissions[i]
}

func (p *fakeProvider) quitCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.quitCalls)
}

type fakeRefresher struct {
	mu       sync.Mutex
	sections []string
}

func (r *fakeRefresher) RefreshSection(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections = append(r.sections, name)
	return nil
}

func (r *fakeRefresher) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sections))
	copy(out, r.sections)
	return out
}

// rawQuestion builds a backend question whose first answer is correct.
func rawQuestion(quizID, difficulty string, timeSec int) engine.RawQuestion {
	return engine.RawQuestion{
		QuizID:      quizID,
		PromptHTML:  "<p>prompt " + quizID + "</p>",
		Answers:     fmt.Sprintf(`["right-%s","wrong-1","wrong-2","wrong-3"]`, quizID),
		TimeSec:     timeSec,
		Difficulty:  difficulty,
		Explanation: "<p>because</p>",
	}
}

func rawQuestions(n int, difficulty string, timeSec int) []engine.RawQuestion {
	out := make([]engine.RawQuestion, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, rawQuestion(fmt.Sprintf("bq-%d", i), difficulty, timeSec))
	}
	return out
}

// startSession spins up a session with randomization off and a compressed
// ticker so timeout tests stay fast.
func startSession(t *testing.T, provider *fakeProvider, refresher engine.CacheRefresher, clock *fakeClock, req engine.StartRequest) *engine.Session {
	t.Helper()
	loader := engine.NewLoaderWithClock(provider, refresher, false, clock.Now, 10*time.Millisecond)
	session, err := loader.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session
}

// nextEvent pulls one event of the wanted type, skipping others.
func nextEvent(t *testing.T, ch <-chan engine.Event, want engine.EventType) engine.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event stream closed while waiting for %s", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

// waitClosed waits for the event stream to end.
func waitClosed(t *testing.T, ch <-chan engine.Event) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for stream close")
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", msg)
}

// answerCorrect submits the correct option for the question in play.
func answerCorrect(t *testing.T, s *engine.Session) {
	t.Helper()
	if err := s.SelectAnswer(s.CurrentQuestion().CorrectOptionID); err != nil {
		t.Fatalf("answer correct: %v", err)
	}
}

// answerWrong submits some option other than the correct one.
func answerWrong(t *testing.T, s *engine.Session) {
	t.Helper()
	q := s.CurrentQuestion()
	for _, opt := range q.Options {
		if opt.ID != q.CorrectOptionID {
			if err := s.SelectAnswer(opt.ID); err != nil {
				t.Fatalf("answer wrong: %v", err)
			}
			return
		}
	}
	t.Fatalf("question %s has no wrong option", q.ID)
}
