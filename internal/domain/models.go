package domain

// Mode is the context a quiz session was started in.
type Mode string

const (
	ModeLearn     Mode = "learn"
	ModeChallenge Mode = "challenge"
	ModeBattle    Mode = "battle"
	ModeFriendly  Mode = "friendly"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeLearn, ModeChallenge, ModeBattle, ModeFriendly:
		return true
	}
	return false
}

// IsBattle reports whether m is a head-to-head mode (ranked or friendly).
func (m Mode) IsBattle() bool {
	return m == ModeBattle || m == ModeFriendly
}

// PowerUpKind identifies one of the single-use-per-session assists.
type PowerUpKind string

const (
	PowerUpEliminate PowerUpKind = "eliminateWrongOption"
	PowerUpExtend    PowerUpKind = "extendTime"
	PowerUpSwap      PowerUpKind = "swapQuestion"
)

// Valid reports whether k is a known power-up.
func (k PowerUpKind) Valid() bool {
	switch k {
	case PowerUpEliminate, PowerUpExtend, PowerUpSwap:
		return true
	}
	return false
}

// WireID maps a power-up to the backend's numeric id.
func (k PowerUpKind) WireID() int {
	switch k {
	case PowerUpEliminate:
		return 1
	case PowerUpExtend:
		return 2
	case PowerUpSwap:
		return 3
	}
	return 0
}

// AnswerOutcome is the tri-state result of a question attempt.
type AnswerOutcome string

const (
	OutcomeCorrect   AnswerOutcome = "correct"
	OutcomeIncorrect AnswerOutcome = "incorrect"
	OutcomeTimeout   AnswerOutcome = "timeout"
)

// WireCode maps an outcome to the backend's numeric code.
// Timeout and Incorrect are distinct codes even though neither scores.
func (o AnswerOutcome) WireCode() int {
	switch o {
	case OutcomeCorrect:
		return 1
	case OutcomeTimeout:
		return 0
	case OutcomeIncorrect:
		return -1
	}
	return -1
}

// AnswerOption is a selectable answer. ID is a stable short token
// ('a', 'b', ...) that travels with the option content when shuffled.
type AnswerOption struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// Question is one fully prepared question of a session.
type Question struct {
	ID              string         `json:"id"`
	BackendQuizID   string         `json:"quizId"`
	PromptHTML      string         `json:"html"`
	Options         []AnswerOption `json:"options"`
	CorrectOptionID string         `json:"correctId"`
	TimeLimitSec    int            `json:"timeSec"`
	Difficulty      string         `json:"difficulty"`
	ExplanationHTML string         `json:"explanation,omitempty"`
}

// ResultSubmission is one per-question report to the backend.
// TimeMs is nil for swap-triggered self-reports.
type ResultSubmission struct {
	SessionID string `json:"sessionId"`
	QuizID    string `json:"quizId"`
	Correct   int    `json:"correct"`
	TimeMs    *int64 `json:"timeMs"`
	PowerUpID *int   `json:"heroUsedId"`
}

// SubmissionResult is the backend's response to a result submission.
type SubmissionResult struct {
	SessionFinished bool   `json:"sessionFinished"`
	BattleSessionID string `json:"battleSessionId,omitempty"`
	Points          int    `json:"points,omitempty"`
}

// QuitResult is the backend's response to an early-exit drain.
type QuitResult struct {
	Success bool           `json:"success"`
	Stats   map[string]any `json:"stats,omitempty"`
}

// Summary is handed to the result-display layer when a session ends.
type Summary struct {
	Correct         int               `json:"correct"`
	Total           int               `json:"total"`
	TotalSec        float64           `json:"totalSec"`
	Mode            Mode              `json:"mode"`
	Title           string            `json:"title"`
	BattleSessionID string            `json:"battleSessionId,omitempty"`
	HidePoints      bool              `json:"hidePoints,omitempty"`
	SessionResult   *SubmissionResult `json:"sessionResult,omitempty"`
}

// BankQuestion is the stored form of a question in a question bank.
// The first answer is the correct one; option ids are assigned at load time.
type BankQuestion struct {
	QuizID      string   `json:"quizId"`
	PromptHTML  string   `json:"question"`
	Answers     []string `json:"answers"`
	TimeSec     int      `json:"timeSec"`
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuestionBank is a locally hosted pool of questions for one content id.
type QuestionBank struct {
	ID        string         `json:"id"`
	Questions []BankQuestion `json:"questions"`
}
