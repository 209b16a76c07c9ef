package engine

import (
	"quiz-session-engine/internal/domain"
)

// extendSeconds is added to the countdown by the extend-time power-up.
const extendSeconds = 30

// UsePowerUp applies one of the three assists. At most one power-up succeeds
// per session; a swap with no matching-difficulty replacement is a no-op that
// leaves the power-up unspent.
func (s *Session) UsePowerUp(kind domain.PowerUpKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
	case StateCompleted, StateQuit:
		return domain.ErrSessionOver
	default:
		return domain.ErrInputLocked
	}
	if s.powerUpUsed {
		return domain.ErrPowerUpSpent
	}

	switch kind {
	case domain.PowerUpExtend:
		s.timer.Extend(extendSeconds)
	case domain.PowerUpEliminate:
		s.eliminateWrongOptionLocked()
	case domain.PowerUpSwap:
		if err := s.swapQuestionLocked(); err != nil {
			return err
		}
	default:
		return domain.ErrInvalidMode
	}

	s.powerUpUsed = true
	s.usedPowerUp = kind
	s.powerUpQIdx = s.idx

	if kind != domain.PowerUpSwap {
		// Swap already broadcast the replacement; the other two only change
		// the current question's presentation.
		s.broadcastLocked(Event{Type: EventQuestion, Question: s.questionViewLocked()})
	}
	return nil
}

// eliminateWrongOptionLocked hides one randomly chosen wrong option for the
// current question only. Scoring and the correct id are untouched.
func (s *Session) eliminateWrongOptionLocked() {
	q := s.questions[s.idx]
	candidates := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == q.CorrectOptionID {
			continue
		}
		if _, removed := s.removedOptions[opt.ID]; removed {
			continue
		}
		candidates = append(candidates, opt.ID)
	}
	if len(candidates) == 0 {
		return
	}
	s.removedOptions[candidates[s.rnd.Intn(len(candidates))]] = struct{}{}
}

// swapQuestionLocked replaces the current question with a pool question of
// the same difficulty. The replaced question is self-reported as correct with
// no elapsed time, and the index does not advance.
func (s *Session) swapQuestionLocked() error {
	current := s.questions[s.idx]

	matching := make([]int, 0, len(s.pool))
	for i, q := range s.pool {
		if q.Difficulty == current.Difficulty {
			matching = append(matching, i)
		}
	}
	if len(matching) == 0 {
		return domain.ErrNoReplacement
	}

	powerUpID := domain.PowerUpSwap.WireID()
	s.submitter.Enqueue(domain.ResultSubmission{
		SessionID: s.id,
		QuizID:    current.BackendQuizID,
		Correct:   domain.OutcomeCorrect.WireCode(),
		TimeMs:    nil,
		PowerUpID: &powerUpID,
	})

	pick := matching[s.rnd.Intn(len(matching))]
	replacement := s.pool[pick]
	s.pool = append(s.pool[:pick], s.pool[pick+1:]...)
	s.questions[s.idx] = replacement

	s.resetQuestionLocked()
	s.broadcastLocked(Event{Type: EventQuestion, Question: s.questionViewLocked()})
	return nil
}
