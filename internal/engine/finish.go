package engine

import (
	"context"
	"log"
	"time"

	"quiz-session-engine/internal/domain"
)

const (
	// finishGrace bounds how long completion waits for the final submission's
	// response before proceeding on locally computed stats.
	finishGrace    = 2 * time.Second
	refreshTimeout = 10 * time.Second
	quitTimeout    = 10 * time.Second
)

// finish runs the natural-completion path: settle in-flight submissions,
// refresh external caches, then hand the summary to subscribers and close
// the stream.
func (s *Session) finish() {
	s.submitter.Drain(finishGrace)
	s.submitter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	s.refreshSections(ctx)

	s.mu.Lock()
	summary := s.summaryLocked()
	s.summary = &summary
	s.broadcastLocked(Event{Type: EventCompleted, Summary: &summary})
	s.closeSubscribersLocked()
	s.mu.Unlock()
}

func (s *Session) summaryLocked() domain.Summary {
	battleID := s.battleSessionID
	if s.lastResult != nil && s.lastResult.BattleSessionID != "" {
		battleID = s.lastResult.BattleSessionID
	}
	return domain.Summary{
		Correct:         s.correctCount,
		Total:           len(s.questions),
		TotalSec:        s.totalElapsed.Seconds(),
		Mode:            s.mode,
		Title:           s.title,
		BattleSessionID: battleID,
		HidePoints:      s.mode == domain.ModeFriendly,
		SessionResult:   s.lastResult,
	}
}

// Summary returns the final summary once the session has completed.
func (s *Session) Summary() (domain.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return domain.Summary{}, false
	}
	return *s.summary, true
}

// Quit abandons the session. The unanswered tail is drained to the backend
// best-effort; the caller is never blocked on that call. A second quit while
// the first is in flight is a no-op.
func (s *Session) Quit() error {
	s.mu.Lock()
	if s.state == StateCompleted || s.state == StateQuit || s.quitRequested {
		s.mu.Unlock()
		return nil
	}
	s.quitRequested = true
	s.state = StateQuit
	s.timer.Cancel()

	remaining := make([]string, 0, len(s.questions)-s.idx)
	for _, q := range s.questions[s.idx:] {
		if q.BackendQuizID != "" {
			remaining = append(remaining, q.BackendQuizID)
		}
	}
	sessionID := s.id
	s.mu.Unlock()

	go s.drainQuit(sessionID, remaining)
	return nil
}

func (s *Session) drainQuit(sessionID string, remaining []string) {
	s.submitter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()

	if len(remaining) > 0 {
		result, err := s.provider.QuitSession(ctx, sessionID, remaining)
		if err != nil {
			log.Printf("quit drain for session %s failed: %v", sessionID, err)
		} else if result.Success {
			s.refreshSections(ctx)
		}
	}

	s.mu.Lock()
	s.broadcastLocked(Event{Type: EventClosed})
	s.closeSubscribersLocked()
	s.mu.Unlock()
}

// refreshSections re-pulls the external data caches a finished session may
// have invalidated. Failures are logged and never block the exit path.
func (s *Session) refreshSections(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	var sections []string
	switch s.mode {
	case domain.ModeChallenge:
		sections = []string{"userInfo", "challenges"}
	case domain.ModeFriendly:
		sections = []string{"userInfo", "disciplines", "userStars", "chests", "friendlyBattles"}
	default:
		sections = []string{"userInfo", "disciplines", "userStars", "chests"}
	}
	for _, name := range sections {
		if err := s.refresher.RefreshSection(ctx, name); err != nil {
			log.Printf("refresh %s failed: %v", name, err)
		}
	}
}

// ReportCurrentQuestion flags the question on display in the explanation
// overlay as faulty.
func (s *Session) ReportCurrentQuestion(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateExplanation {
		s.mu.Unlock()
		return domain.ErrInputLocked
	}
	quizID := s.questions[s.idx].BackendQuizID
	s.mu.Unlock()

	if err := s.provider.ReportQuestion(ctx, quizID); err != nil {
		log.Printf("report quiz %s failed: %v", quizID, err)
		return err
	}
	return nil
}
