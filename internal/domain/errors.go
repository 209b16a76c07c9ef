package domain

import "errors"

var (
	// ErrInvalidMode is returned when a session is requested with an unknown mode.
	ErrInvalidMode = errors.New("invalid quiz mode")
	// ErrNoQuestions indicates the backend returned an empty question list.
	ErrNoQuestions = errors.New("no questions available")
	// ErrQuizLoad indicates the question fetch failed; the caller may retry.
	ErrQuizLoad = errors.New("failed to load quiz questions")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrSessionNotFound is returned when a session id is unknown to the host.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInputLocked is returned when an answer arrives while input is locked.
	ErrInputLocked = errors.New("input is locked")
	// ErrOptionNotFound indicates a submitted option id is invalid or was
	// removed by a power-up.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSessionOver is returned for actions on a completed or quit session.
	ErrSessionOver = errors.New("quiz session is over")
	// ErrPowerUpSpent is returned when the single power-up was already used.
	ErrPowerUpSpent = errors.New("power-up already used this session")
	// ErrNoReplacement indicates the swap pool has no question of matching
	// difficulty; the power-up is not consumed in that case.
	ErrNoReplacement = errors.New("no replacement question of matching difficulty")
)
