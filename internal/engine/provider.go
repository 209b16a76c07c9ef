package engine

import (
	"context"
	"encoding/json"

	"quiz-session-engine/internal/domain"
)

// FetchRequest identifies the content a session should be built from.
// ReferenceID is a content id (learn), challenge id (challenge), or
// battle session id (battle/friendly).
type FetchRequest struct {
	Mode        domain.Mode
	ReferenceID string
	Difficulty  string
}

// RawQuestion is a question as the backend serves it. Answers is a
// JSON-encoded string array whose first entry is the correct answer.
type RawQuestion struct {
	QuizID      string `json:"quizId"`
	PromptHTML  string `json:"question"`
	Answers     string `json:"answers"`
	TimeSec     int    `json:"timeSec"`
	Difficulty  string `json:"difficulty"`
	Explanation string `json:"explanation,omitempty"`
}

// DecodedAnswers unpacks the nested answers payload.
func (q RawQuestion) DecodedAnswers() ([]string, error) {
	if q.Answers == "" {
		return nil, nil
	}
	var answers []string
	if err := json.Unmarshal([]byte(q.Answers), &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// FetchResponse is the initial question batch for a session.
type FetchResponse struct {
	SessionID        string        `json:"sessionId"`
	BattleSessionID  string        `json:"battleSessionId,omitempty"`
	Questions        []RawQuestion `json:"questions"`
	ReplaceQuestions []RawQuestion `json:"replace_questions,omitempty"`
}

// QuestionProvider is the backend the engine plays against.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, req FetchRequest) (FetchResponse, error)
	SubmitResult(ctx context.Context, sub domain.ResultSubmission) (domain.SubmissionResult, error)
	QuitSession(ctx context.Context, sessionID string, remainingQuizIDs []string) (domain.QuitResult, error)
	ReportQuestion(ctx context.Context, quizID string) error
}

// CacheRefresher re-pulls externally cached user data (profile, stars,
// chests) after a session ends. Implementations are expected to be
// best-effort; the engine logs and swallows refresh failures.
type CacheRefresher interface {
	RefreshSection(ctx context.Context, name string) error
}
