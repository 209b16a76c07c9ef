package engine

import (
	"math/rand"
	"testing"

	"quiz-session-engine/internal/domain"
)

func fourOptions() []domain.AnswerOption {
	return []domain.AnswerOption{
		{ID: "a", HTML: "right"},
		{ID: "b", HTML: "wrong-1"},
		{ID: "c", HTML: "wrong-2"},
		{ID: "d", HTML: "wrong-3"},
	}
}

func TestShuffleDisabledKeepsOrder(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	opts := fourOptions()
	got := shuffleOptions(opts, rnd, false)
	for i := range opts {
		if got[i] != opts[i] {
			t.Fatalf("order changed at %d: %+v", i, got[i])
		}
	}
	if correctOptionID(got, "right") != "a" {
		t.Fatalf("expected correct id a, got %s", correctOptionID(got, "right"))
	}
}

func TestShuffleKeepsExactlyOneCorrect(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		got := shuffleOptions(fourOptions(), rnd, true)
		if len(got) != 4 {
			t.Fatalf("seed %d: expected 4 options, got %d", seed, len(got))
		}

		correctID := correctOptionID(got, "right")
		matches := 0
		for _, opt := range got {
			if opt.ID == correctID && opt.HTML == "right" {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("seed %d: expected exactly one correct option, got %d", seed, matches)
		}
	}
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	opts := fourOptions()
	_ = shuffleOptions(opts, rnd, true)
	if opts[0].HTML != "right" || opts[3].HTML != "wrong-3" {
		t.Fatalf("input slice mutated: %+v", opts)
	}
}

func TestCorrectOptionIDDuplicateContent(t *testing.T) {
	opts := []domain.AnswerOption{
		{ID: "a", HTML: "same"},
		{ID: "b", HTML: "same"},
	}
	if got := correctOptionID(opts, "same"); got != "a" {
		t.Fatalf("expected first match to win, got %s", got)
	}
}
