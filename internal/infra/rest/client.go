package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
)

// Client is an engine.QuestionProvider backed by the platform's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the given API root. token, when set, is sent
// as a bearer credential on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type fetchPayload struct {
	QuizType        string `json:"quizType"`
	ContentID       string `json:"contentId,omitempty"`
	Difficulty      string `json:"difficulty,omitempty"`
	ChallengeID     string `json:"challengeId,omitempty"`
	BattleSessionID string `json:"battleSessionId,omitempty"`
}

type fetchEnvelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	engine.FetchResponse
}

// FetchQuestions requests the initial question batch for a session.
func (c *Client) FetchQuestions(ctx context.Context, req engine.FetchRequest) (engine.FetchResponse, error) {
	payload := fetchPayload{QuizType: string(req.Mode)}
	switch req.Mode {
	case domain.ModeChallenge:
		payload.ChallengeID = req.ReferenceID
	case domain.ModeBattle:
		// The backend pairs the caller into a battle on its own.
	case domain.ModeFriendly:
		payload.BattleSessionID = req.ReferenceID
	default:
		payload.ContentID = req.ReferenceID
		payload.Difficulty = req.Difficulty
	}

	var envelope fetchEnvelope
	if err := c.post(ctx, "api/app/quiz_questions", payload, &envelope); err != nil {
		return engine.FetchResponse{}, err
	}
	if envelope.Success != nil && !*envelope.Success {
		msg := envelope.Message
		if msg == "" {
			msg = "backend rejected the request"
		}
		return engine.FetchResponse{}, fmt.Errorf("%w: %s", domain.ErrQuizLoad, msg)
	}
	return envelope.FetchResponse, nil
}

// SubmitResult reports one question's outcome.
func (c *Client) SubmitResult(ctx context.Context, sub domain.ResultSubmission) (domain.SubmissionResult, error) {
	var result domain.SubmissionResult
	if err := c.post(ctx, "api/app/answer_result", sub, &result); err != nil {
		return domain.SubmissionResult{}, err
	}
	return result, nil
}

type quitPayload struct {
	SessionID string   `json:"sessionId"`
	QuizIDs   []string `json:"quizIds"`
}

// QuitSession drains the unanswered question ids on early exit.
func (c *Client) QuitSession(ctx context.Context, sessionID string, remainingQuizIDs []string) (domain.QuitResult, error) {
	var result domain.QuitResult
	err := c.post(ctx, "api/app/quiz_quit", quitPayload{SessionID: sessionID, QuizIDs: remainingQuizIDs}, &result)
	if err != nil {
		return domain.QuitResult{}, err
	}
	return result, nil
}

// ReportQuestion flags a faulty question.
func (c *Client) ReportQuestion(ctx context.Context, quizID string) error {
	return c.post(ctx, "api/app/error_report", map[string]string{"quizId": quizID}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
