package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-session-engine/internal/domain"
)

const submitTimeout = 10 * time.Second

// Submitter dispatches result submissions to the backend without blocking
// the session's forward progress. Failures are logged and swallowed; local
// state remains the source of truth. Responses flagging session completion
// are handed to onResult as they arrive.
type Submitter struct {
	provider QuestionProvider
	onResult func(domain.SubmissionResult)

	jobs    chan domain.ResultSubmission
	pending sync.WaitGroup
	once    sync.Once
}

// NewSubmitter starts the dispatch worker.
func NewSubmitter(provider QuestionProvider, onResult func(domain.SubmissionResult)) *Submitter {
	s := &Submitter{
		provider: provider,
		onResult: onResult,
		jobs:     make(chan domain.ResultSubmission, 32),
	}
	go s.work()
	return s
}

// Enqueue queues a submission for asynchronous delivery.
func (s *Submitter) Enqueue(sub domain.ResultSubmission) {
	s.pending.Add(1)
	s.jobs <- sub
}

func (s *Submitter) work() {
	for sub := range s.jobs {
		s.dispatch(sub)
		s.pending.Done()
	}
}

func (s *Submitter) dispatch(sub domain.ResultSubmission) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	result, err := s.provider.SubmitResult(ctx, sub)
	if err != nil {
		log.Printf("submit result for quiz %s failed: %v", sub.QuizID, err)
		return
	}
	if result.SessionFinished && s.onResult != nil {
		s.onResult(result)
	}
}

// Drain waits up to timeout for in-flight submissions to settle. Completion
// never blocks on it beyond the grace period; the session finished flag is
// merged opportunistically if it arrived in time.
func (s *Submitter) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close stops the worker once the queue is empty. Enqueue must not be
// called after Close.
func (s *Submitter) Close() {
	s.once.Do(func() { close(s.jobs) })
}
