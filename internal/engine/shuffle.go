package engine

import (
	"math/rand"

	"quiz-session-engine/internal/domain"
)

// shuffleOptions returns a copy of opts, Fisher-Yates shuffled when enabled.
// Option ids travel with their content, so correctness is unaffected by order.
func shuffleOptions(opts []domain.AnswerOption, rnd *rand.Rand, enabled bool) []domain.AnswerOption {
	shuffled := make([]domain.AnswerOption, len(opts))
	copy(shuffled, opts)
	if !enabled {
		return shuffled
	}
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// correctOptionID finds the option carrying the correct content after any
// reordering. Matching is by content identity, not position; the first match
// wins so duplicate answer texts still yield exactly one correct id.
func correctOptionID(opts []domain.AnswerOption, correctHTML string) string {
	for _, opt := range opts {
		if opt.HTML == correctHTML {
			return opt.ID
		}
	}
	if len(opts) > 0 {
		return opts[0].ID
	}
	return ""
}
