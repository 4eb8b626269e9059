package study_test

import (
	"errors"
	"testing"

	"github.com/principia-matematica/estudo/internal/study"
)

func q(id, correct string) study.Question {
	return study.Question{
		ID:                   id,
		Statement:            "statement " + id,
		Difficulty:           3,
		CorrectAlternativeID: correct,
		Alternatives: []study.Alternative{
			{ID: "a1", Letter: "A"}, {ID: "a2", Letter: "B"}, {ID: "a3", Letter: "C"},
		},
	}
}

func TestDeriveStatusUnanswered(t *testing.T) {
	st, err := study.DeriveStatus(q("q1", "a1"), map[string]string{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != study.StatusUnanswered {
		t.Fatalf("got %s, want unanswered", st)
	}
}

func TestDeriveStatusPractice(t *testing.T) {
	submitted := map[string]string{"q1": "a1", "q2": "a3"}

	st, err := study.DeriveStatus(q("q1", "a1"), submitted, false)
	if err != nil || st != study.StatusCorrect {
		t.Fatalf("got %s (%v), want correct", st, err)
	}
	st, err = study.DeriveStatus(q("q2", "a1"), submitted, false)
	if err != nil || st != study.StatusIncorrect {
		t.Fatalf("got %s (%v), want incorrect", st, err)
	}
}

func TestDeriveStatusExamNeverRevealsOutcome(t *testing.T) {
	submitted := map[string]string{"q1": "a1", "q2": "a3"}
	for _, id := range []string{"q1", "q2"} {
		st, err := study.DeriveStatus(q(id, "a1"), submitted, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if st != study.StatusAnswered {
			t.Fatalf("exam mode: got %s for %s, want answered", st, id)
		}
	}
}

func TestDeriveStatusMissingAnswerKey(t *testing.T) {
	submitted := map[string]string{"q1": "a1"}
	_, err := study.DeriveStatus(q("q1", ""), submitted, false)
	var integrity *study.ErrMissingAnswerKey
	if !errors.As(err, &integrity) {
		t.Fatalf("got %v, want ErrMissingAnswerKey", err)
	}
	if integrity.QuestionID != "q1" {
		t.Fatalf("got question id %q, want q1", integrity.QuestionID)
	}

	// Exam mode never consults the key, so its absence is not an error there.
	st, err := study.DeriveStatus(q("q1", ""), submitted, true)
	if err != nil || st != study.StatusAnswered {
		t.Fatalf("exam mode: got %s (%v), want answered", st, err)
	}
}
